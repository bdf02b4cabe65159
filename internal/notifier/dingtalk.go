package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const dingTalkBaseURL = "https://oapi.dingtalk.com"

// DingTalk posts text messages to a DingTalk robot webhook.
type DingTalk struct {
	client *resty.Client
	prefix string
	token  string
}

type dingTalkText struct {
	Content string `json:"content"`
}

type dingTalkMessage struct {
	MsgType string       `json:"msgtype"`
	Text    dingTalkText `json:"text"`
}

type dingTalkReply struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func NewDingTalk(prefix, token string) *DingTalk {
	return NewDingTalkWithBaseURL(dingTalkBaseURL, prefix, token)
}

func NewDingTalkWithBaseURL(baseURL, prefix, token string) *DingTalk {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(15 * time.Second)
	client.SetHeader("Content-Type", "application/json")
	return &DingTalk{client: client, prefix: prefix, token: token}
}

// SendText succeeds only when the robot answers errmsg "ok".
func (d *DingTalk) SendText(text string) error {
	var reply dingTalkReply
	resp, err := d.client.R().
		SetQueryParam("access_token", d.token).
		SetBody(dingTalkMessage{
			MsgType: "text",
			Text:    dingTalkText{Content: d.prefix + " " + text},
		}).
		SetResult(&reply).
		Post("/robot/send")
	if err != nil {
		return fmt.Errorf("dingtalk send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("dingtalk status=%d", resp.StatusCode())
	}
	if reply.ErrMsg != "ok" {
		return fmt.Errorf("dingtalk rejected: errcode=%d errmsg=%q", reply.ErrCode, reply.ErrMsg)
	}
	return nil
}
