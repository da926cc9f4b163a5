package main

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const envPrefix = "NODESIM_"

// loadConfig fills opts with precedence flags > NODESIM_* env > TOML file.
// Fields carry `toml:"section.key"` and `env:"KEY"` tags; the file path is
// read from the field named Config.
func loadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	if f := v.FieldByName("Config"); f.IsValid() && f.String() != "" {
		data, err := os.ReadFile(f.String())
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return err
		default:
			var doc map[string]any
			if err := toml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parse config %s: %w", f.String(), err)
			}
			for i := 0; i < v.NumField(); i++ {
				ft := t.Field(i)
				if changed[flagName(ft.Name)] {
					continue
				}
				if path := ft.Tag.Get("toml"); path != "" {
					if val := lookup(doc, path); val != nil {
						setValue(v.Field(i), val)
					}
				}
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		ft := t.Field(i)
		if changed[flagName(ft.Name)] {
			continue
		}
		if key := ft.Tag.Get("env"); key != "" {
			if s := os.Getenv(envPrefix + key); s != "" {
				setString(v.Field(i), s)
			}
		}
	}
	return nil
}

// flagName turns "FlashPath" into "flash-path".
func flagName(field string) string {
	var out []rune
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			out = append(out, '-')
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

func lookup(doc map[string]any, path string) any {
	parts := strings.Split(path, ".")
	cur := doc
	for i, p := range parts {
		if i == len(parts)-1 {
			return cur[p]
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return nil
}

func setValue(f reflect.Value, val any) {
	if !f.CanSet() {
		return
	}
	switch f.Kind() {
	case reflect.String:
		if s, ok := val.(string); ok {
			f.SetString(s)
		}
	case reflect.Bool:
		if b, ok := val.(bool); ok {
			f.SetBool(b)
		}
	case reflect.Int:
		if i, ok := val.(int64); ok {
			f.SetInt(i)
		}
	case reflect.Float32, reflect.Float64:
		switch n := val.(type) {
		case float64:
			f.SetFloat(n)
		case int64:
			f.SetFloat(float64(n))
		}
	}
}

func setString(f reflect.Value, s string) {
	if !f.CanSet() {
		return
	}
	switch f.Kind() {
	case reflect.String:
		f.SetString(s)
	case reflect.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			f.SetBool(b)
		}
	case reflect.Int:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			f.SetInt(i)
		}
	case reflect.Float32, reflect.Float64:
		if x, err := strconv.ParseFloat(s, 64); err == nil {
			f.SetFloat(x)
		}
	}
}
