package decision

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"aurora/internal/pkg/jsonutil"
)

var (
	// ErrMalformedAdvise means no JSON object could be read from the reply.
	ErrMalformedAdvise = errors.New("advise: malformed json")
	// ErrInvalidAdvise means the object does not match the advise schema.
	ErrInvalidAdvise = errors.New("advise: schema violation")
)

//go:embed advise_schema.yaml
var adviseSchemaYAML []byte

var adviseSchema = mustCompileSchema("advise.json", adviseSchemaYAML)

func mustCompileSchema(name string, doc []byte) *jsonschema.Schema {
	s, err := compileSchema(name, doc)
	if err != nil {
		panic(fmt.Sprintf("compile %s: %v", name, err))
	}
	return s
}

func compileSchema(name string, doc []byte) (*jsonschema.Schema, error) {
	var data map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(doc))
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("parse schema yaml: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

type adviseWire struct {
	OrderID    *int64          `json:"order_id"`
	Price      decimal.Decimal `json:"price"`
	Confidence float64         `json:"confidence"`
	Reason     *string         `json:"reason"`
}

// ParseAdvise reads an Advise out of a model reply. Surrounding prose and code
// fences are tolerated. A missing action means HOLD; an action outside the
// closed set parses as ActionUnknown.
func ParseAdvise(reply string) (Advise, error) {
	block, ok := jsonutil.ExtractObject(reply)
	if !ok || !gjson.Valid(block) {
		return Advise{}, ErrMalformedAdvise
	}

	dec := json.NewDecoder(strings.NewReader(block))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Advise{}, fmt.Errorf("%w: %v", ErrMalformedAdvise, err)
	}
	if err := adviseSchema.Validate(doc); err != nil {
		return Advise{}, fmt.Errorf("%w: %v", ErrInvalidAdvise, err)
	}

	var w adviseWire
	if err := json.Unmarshal([]byte(block), &w); err != nil {
		return Advise{}, fmt.Errorf("%w: %v", ErrInvalidAdvise, err)
	}
	adv := Advise{
		Action:     ActionHold,
		OrderID:    w.OrderID,
		Price:      w.Price,
		Confidence: int(math.Trunc(w.Confidence)),
	}
	if w.Reason != nil {
		adv.Reason = *w.Reason
	}
	if action := gjson.Get(block, "action"); action.Exists() {
		adv.Action = ParseAction(action.String())
	}
	return adv, nil
}
