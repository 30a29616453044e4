// Command schema regenerates the embedded config schema. Run through
// go:generate in pkg/config whenever Config fields change.
package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/tradingzbotem/sparks/pkg/config"
)

func main() {
	out := "schema.json"
	if len(os.Args) > 1 {
		out = os.Args[1]
	}

	schema := jsonschema.Reflect(&config.Config{})
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("marshal config schema: %v", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(out, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		log.Fatalf("write %s: %v", out, err)
	}
	log.Printf("config schema written to %s", out)
}
