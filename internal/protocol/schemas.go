package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// clientSchemas maps each client message type to its schema file.
var clientSchemas = map[string]string{
	TypeHello:  "hello.schema.json",
	TypeMove:   "move.schema.json",
	TypeDefeat: "defeat.schema.json",
	TypeLook:   "look.schema.json",
}

var compiledClientSchemas = func() map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(clientSchemas))
	for typ, name := range clientSchemas {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			panic(fmt.Sprintf("schema %s: %v", name, err))
		}
		s, err := jsonschema.CompileString(name, string(raw))
		if err != nil {
			panic(fmt.Sprintf("schema %s: %v", name, err))
		}
		out[typ] = s
	}
	return out
}()

// ValidateClient checks a raw client message against the schema for its type.
func ValidateClient(msgType string, raw []byte) error {
	s, ok := compiledClientSchemas[msgType]
	if !ok {
		return fmt.Errorf("unknown message type %q", msgType)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%s: %s", strings.ToLower(msgType), err)
	}
	return nil
}
