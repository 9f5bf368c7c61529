// Command jsonsql compiles JSON query descriptors to SQL and optionally runs
// them against a configured database.
//
//	jsonsql build [-dialect name] [-positional] [-inline] [-raw] [file]
//	jsonsql exec -config db.yaml [file]
//	jsonsql migrate -config db.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golobby/jsonsql"
	"github.com/golobby/jsonsql/models"
	"github.com/golobby/jsonsql/store"
)

type command struct {
	name  string
	usage string
	run   func(args []string, stdin io.Reader, stdout io.Writer) error
}

var commands = []command{
	{"build", "build [-dialect name] [-positional] [-inline] [-raw] [file]", runBuild},
	{"exec", "exec -config db.yaml [file]", runExec},
	{"migrate", "migrate -config db.yaml", runMigrate},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: jsonsql <command> [arguments]")
	for _, c := range commands {
		fmt.Fprintf(w, "\tjsonsql %s\n", c.usage)
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) < 1 {
		usage(stdout)
		return fmt.Errorf("missing command")
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(args[1:], stdin, stdout)
		}
	}
	usage(stdout)
	return fmt.Errorf("unknown command %q", args[0])
}

func readDescriptor(args []string, stdin io.Reader) (any, error) {
	var data []byte
	var err error
	if len(args) > 0 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return nil, err
	}
	return jsonsql.DecodeJSON(data)
}

func runBuild(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stdout)
	dialect := fs.String("dialect", "base", "dialect: "+strings.Join(jsonsql.Dialects(), ", "))
	positional := fs.Bool("positional", false, "render positional placeholders")
	inline := fs.Bool("inline", false, "inline numbers and booleans")
	raw := fs.Bool("raw", false, "inline every value instead of using placeholders")
	unwrapped := fs.Bool("unwrapped", false, "do not quote identifiers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := jsonsql.DefaultOptions()
	opts.Dialect = *dialect
	opts.NamedValues = !*positional
	opts.InlineScalars = *inline
	opts.SeparatedValues = !*raw
	opts.WrappedIdentifiers = !*unwrapped
	b, err := jsonsql.New(opts)
	if err != nil {
		return err
	}
	descriptor, err := readDescriptor(fs.Args(), stdin)
	if err != nil {
		return err
	}
	res, err := b.Build(descriptor)
	if err != nil {
		return err
	}
	store.Describe(stdout, res)
	return nil
}

func openStore(fs *flag.FlagSet, args []string, stdout io.Writer) (*store.Store, error) {
	fs.SetOutput(stdout)
	path := fs.String("config", "", "YAML database configuration")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *path == "" {
		return nil, fmt.Errorf("%s: -config is required", fs.Name())
	}
	cfg, err := store.LoadConfig(*path)
	if err != nil {
		return nil, err
	}
	return store.Open(cfg)
}

var rowStatements = map[string]bool{"select": true, "union": true, "intersect": true, "except": true}

func runExec(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	s, err := openStore(fs, args, stdout)
	if err != nil {
		return err
	}
	defer s.Close()

	descriptor, err := readDescriptor(fs.Args(), stdin)
	if err != nil {
		return err
	}
	ctx := context.Background()
	typ := "select"
	if d, ok := descriptor.(jsonsql.D); ok {
		if t, ok := d.Get("type"); ok {
			if typ, ok = t.(string); !ok {
				return fmt.Errorf("exec: descriptor type must be a string, got %v", t)
			}
		}
	}
	if rowStatements[typ] {
		rows, err := s.SelectMaps(ctx, descriptor)
		if err != nil {
			return err
		}
		store.DescribeRows(stdout, rows)
		return nil
	}
	res, err := s.Exec(ctx, descriptor)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d rows affected\n", n)
	return nil
}

func runMigrate(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	s, err := openStore(fs, args, stdout)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := models.NewRepository(s).CreateTables(context.Background()); err != nil {
		return err
	}
	for _, t := range models.Tables() {
		fmt.Fprintf(stdout, "created %s\n", t.Name)
	}
	return nil
}
