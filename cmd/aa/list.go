package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/wippyai/aa-wasm/manifest"
	"github.com/wippyai/aa-wasm/module"
)

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	raw := fs.Bool("raw", false, "Print the listing document unchanged")
	if err := fs.Parse(args); err != nil {
		return err
	}
	base, err := a.base()
	if err != nil {
		return err
	}

	if *raw {
		text, err := module.ListModules(ctx, base, a.moduleOptions()...)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	listing, err := module.Modules(ctx, base, a.moduleOptions()...)
	if err != nil {
		return err
	}
	a.printListing(os.Stdout, listing)
	return nil
}

func (a *app) printListing(w io.Writer, l *manifest.Listing) {
	for _, e := range l.Modules {
		marker := "  "
		if e.Name == l.Default {
			marker = "* "
		}
		fmt.Fprintf(w, "%s%s %s\n", marker, a.paint(nameStyle, e.Name), a.paint(dimStyle, e.JSONURL))
	}
}
