package process

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Runtime describes one interpreter the process strategy can drive.
type Runtime struct {
	// Label names the language in messages: "JavaScript", "R".
	Label string
	// RuntimeName names the installable runtime: "Node.js", "R".
	RuntimeName string
	// Binary is the interpreter looked up on PATH.
	Binary string
	// Extension is the source file suffix, dot included.
	Extension string
	// Placeholder replaces empty output on success.
	Placeholder string
	// Declare renders one context entry as a statement of the language.
	// ok is false when the value has no literal form.
	Declare func(name string, value any) (stmt string, ok bool)
}

func JavaScript() Runtime {
	return Runtime{
		Label:       "JavaScript",
		RuntimeName: "Node.js",
		Binary:      "node",
		Extension:   ".js",
		Placeholder: "Code executed successfully (no output)",
		Declare:     declareJS,
	}
}

func R() Runtime {
	return Runtime{
		Label:       "R",
		RuntimeName: "R",
		Binary:      "Rscript",
		Extension:   ".R",
		Placeholder: "R code executed successfully (no output)",
		Declare:     declareR,
	}
}

// declareJS emits const k = <json>;. JSON literals are valid JavaScript
// literals for every scalar.
func declareJS(name string, value any) (string, bool) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("const %s = %s;", name, data), true
}

func declareR(name string, value any) (string, bool) {
	var lit string
	switch v := value.(type) {
	case string:
		lit = strconv.Quote(v)
	case bool:
		lit = "FALSE"
		if v {
			lit = "TRUE"
		}
	case int64:
		lit = strconv.FormatInt(v, 10)
	case float64:
		lit = strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return "", false
	}
	return fmt.Sprintf("%s <- %s", name, lit), true
}
