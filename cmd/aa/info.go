package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/wippyai/aa-wasm/module"
)

func (a *app) info(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	gui := fs.Bool("gui", false, "Print the GUI description document")
	if err := fs.Parse(args); err != nil {
		return err
	}
	name, err := oneModuleArg(fs)
	if err != nil {
		return err
	}

	m, err := a.open(ctx, name, a.cfg.SampleRate)
	if err != nil {
		return err
	}
	defer m.Close(ctx)

	if *gui {
		desc, ok := m.GUIDescription()
		if !ok {
			return fmt.Errorf("%s has no GUI description", name)
		}
		fmt.Println(desc)
		return nil
	}
	a.printInfo(os.Stdout, m)
	return nil
}

func (a *app) printInfo(w io.Writer, m *module.Module) {
	info := m.Info()
	row := func(k string, v any) {
		fmt.Fprintf(w, "  %-14s %s\n", k, a.paint(valueStyle, fmt.Sprint(v)))
	}

	fmt.Fprintln(w, a.paint(titleStyle, info.Name))
	row("vendor", info.Vendor)
	row("category", info.Category)
	row("id", info.ID)
	row("version", info.Version)
	row("parameters", info.Parameters)
	row("presets", info.Presets)
	row("midi in/out", fmt.Sprintf("%d/%d", info.MidiInputs, info.MidiOutputs))
	row("declared i/o", fmt.Sprintf("%d/%d", info.Inputs, info.Outputs))
	row("unit i/o", fmt.Sprintf("%d/%d", m.InputCount(), m.OutputCount()))
	row("delay", info.InitialDelay)
	_, hasGUI := m.GUIDescription()
	row("gui", hasGUI)
}
