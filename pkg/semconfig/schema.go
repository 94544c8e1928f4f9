package semconfig

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sidequery/sidemantic-sub003/pkg/log"
)

//go:embed schemas/*
var schemaFiles embed.FS

func loadSchema(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = loadSchema
}

// ValidateRequestJSON validates raw JSON against the structured query
// request schema, before it is decoded into a query.Request — the same
// validate-before-decode shape as the teacher's schema.Validate
// (pkg/schema/validate.go) applied to job-meta/config JSON.
func ValidateRequestJSON(r io.Reader) error {
	s, err := jsonschema.Compile("embedFS://schemas/request.schema.json")
	if err != nil {
		return err
	}

	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		log.Errorf("semconfig.ValidateRequestJSON() - failed to decode: %v", err)
		return err
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%#v", err)
	}
	return nil
}
