// Command plexpgtranslate runs SQL through the translation pipeline
// (internal/translate) without a live pool connection, printing the
// translated SQL, the parameter-name vector, and whether translation
// succeeded. It is a developer tool, not part of the intercepted call
// path, grounded in cmd/psqldef's go-flags option parsing.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/sqldef/plexpg/internal/translate"
)

func parseOptions(args []string) (string, translate.Options) {
	var opts struct {
		File   string `short:"f" long:"file" description:"Read SQL from the file, rather than stdin" value-name:"filename" default:"-"`
		Schema string `long:"schema" description:"Schema to qualify bare table names with" value-name:"schema"`
		Tables string `long:"schema-tables" description:"Comma-separated whitelist of bare table names eligible for schema-qualification" value-name:"tables"`
		Help   bool   `long:"help" description:"Show this help"`
	}

	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[option...]"
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if len(remaining) > 0 {
		fmt.Printf("Unexpected extra arguments: %v\n\n", remaining)
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	tables := map[string]bool{}
	if opts.Tables != "" {
		for _, name := range strings.Split(opts.Tables, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				tables[name] = true
			}
		}
	}

	return opts.File, translate.Options{
		Schema:       opts.Schema,
		SchemaTables: tables,
	}
}

func readSQL(file string) (string, error) {
	var r io.Reader = os.Stdin
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func main() {
	file, opt := parseOptions(os.Args[1:])

	sql, err := readSQL(file)
	if err != nil {
		log.Fatal(err)
	}

	t := translate.Translate(sql, opt)

	fmt.Println("-- translated --")
	fmt.Println(t.SQL)
	fmt.Printf("-- success=%v failure=%v fingerprint=%#x --\n", t.Success, t.Failure, t.Fingerprint)
	if t.ParamCount > 0 {
		fmt.Printf("-- params (%d): %v --\n", t.ParamCount, t.ParamNames)
	}
}
