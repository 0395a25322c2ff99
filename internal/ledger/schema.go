package ledger

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// LedgerFile is the file name of the serialized ledger.
const LedgerFile = "ledger.yaml"

var (
	// cue values are not safe for concurrent use.
	schemaMu   sync.Mutex
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile ledger schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Ledger"))
		if err := schemaDef.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup #Ledger: %w", err)
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

// Validate checks a ledger file against the schema without building it.
func Validate(data []byte) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	cctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	file, err := cueyaml.Extract(LedgerFile, data)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrMalformed, LedgerFile, err)
	}
	v := cctx.BuildFile(file)
	if err := v.Err(); err != nil {
		return fmt.Errorf("parse %s: %w", LedgerFile, err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s does not match schema: %v", ErrMalformed, LedgerFile, err)
	}
	return nil
}
