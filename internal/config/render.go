package config

import "reflect"

// Sections flattens the config into section -> option -> value, keyed by the
// same names the config file uses. `config show` renders this.
func (c Config) Sections() map[string]map[string]any {
	out := make(map[string]map[string]any)
	root := reflect.ValueOf(c)
	for i := 0; i < root.NumField(); i++ {
		secField := root.Type().Field(i)
		secName := secField.Tag.Get("toml")
		if secName == "" {
			continue
		}
		sec := root.Field(i)
		opts := make(map[string]any, sec.NumField())
		for j := 0; j < sec.NumField(); j++ {
			if name := sec.Type().Field(j).Tag.Get("toml"); name != "" {
				opts[name] = sec.Field(j).Interface()
			}
		}
		out[secName] = opts
	}
	return out
}
