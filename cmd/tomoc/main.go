// Command tomoc is Tomo's driver (spec §6.2): it loads a `.tm` file (and
// everything it `use`s), runs it through the checker and emitter, and hands
// the emitted C to $CC. Follows the teacher's cmd/funxy/main.go habit of a
// hand-rolled os.Args switch rather than the flag package, since the
// sub-command surface (compile vs. future `tomoc test`) doesn't fit
// flag's single-flagset model any better for us than it did for funxy.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tomo-lang/tomo/internal/buildcache"
	"github.com/tomo-lang/tomo/internal/checker"
	"github.com/tomo-lang/tomo/internal/config"
	"github.com/tomo-lang/tomo/internal/diagnostics"
	"github.com/tomo-lang/tomo/internal/emitter"
	"github.com/tomo-lang/tomo/internal/modules"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <file.tm> [-o <output>] [--cache-db <path>] [-c|--emit-only]\n", os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sourcePath := os.Args[1]
	outputPath := ""
	cacheDB := ""
	emitOnly := false

	for i := 2; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "-o":
			if i+1 >= len(os.Args) {
				usage()
				os.Exit(1)
			}
			i++
			outputPath = os.Args[i]
		case "--cache-db":
			if i+1 >= len(os.Args) {
				usage()
				os.Exit(1)
			}
			i++
			cacheDB = os.Args[i]
		case "-c", "--emit-only":
			emitOnly = true
		default:
			fmt.Fprintf(os.Stderr, "%s: unrecognized argument %q\n", os.Args[0], os.Args[i])
			usage()
			os.Exit(1)
		}
	}

	if err := run(sourcePath, outputPath, cacheDB, emitOnly); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
		os.Exit(1)
	}
}

func run(sourcePath, outputPath, cacheDB string, emitOnly bool) (err error) {
	sink := diagnostics.NewPanicSink()
	defer func() {
		if r := recover(); r != nil {
			if d, ok := diagnostics.Recover(r); ok {
				fmt.Fprint(os.Stderr, d.Format(sink.UseColor))
				fmt.Fprintln(os.Stderr)
				err = fmt.Errorf("compilation failed")
				return
			}
			panic(r)
		}
	}()

	diagnostics.Trace("loading %s", sourcePath)

	absDir, err := filepath.Abs(filepath.Dir(sourcePath))
	if err != nil {
		return err
	}
	proj, err := config.LoadProject(absDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", config.ProjectFile, err)
	}

	store, err := buildcache.Open(cacheDB)
	if err != nil {
		return fmt.Errorf("opening build cache: %w", err)
	}
	defer store.Close()

	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	// Keyed on the entry file's own content only: a change to a `use`d file
	// with the entry file unchanged is a known miss this cache won't catch.
	headerKey := buildcache.Key(src, []byte("header"))
	implKey := buildcache.Key(src, []byte("impl"))

	header, hok := store.Get(headerKey)
	impl, iok := store.Get(implKey)
	moduleName := config.TrimSourceExt(filepath.Base(sourcePath))

	if hok && iok {
		diagnostics.Trace("build cache hit for %s", sourcePath)
	} else {
		loader := modules.NewLoader(sink)
		mod, err := loader.LoadFile(sourcePath)
		if err != nil {
			return err
		}
		moduleName = mod.Name

		diagnostics.Trace("checking %s", mod.Name)
		c := checker.New(sink, loader)
		rootEnv := c.CheckModule(mod)

		diagnostics.Trace("emitting C for %s", mod.Name)
		em := emitter.New(c, rootEnv, mod.Name)
		out := em.EmitFromModule(mod)
		header, impl = out.Header, out.Impl

		if err := store.Put(headerKey, header); err != nil {
			return fmt.Errorf("writing build cache: %w", err)
		}
		if err := store.Put(implKey, impl); err != nil {
			return fmt.Errorf("writing build cache: %w", err)
		}
	}

	base := outputPath
	if base == "" {
		base = filepath.Join(filepath.Dir(sourcePath), moduleName)
	}
	headerPath, implPath := base+".h", base+".c"
	if err := os.WriteFile(headerPath, []byte(header), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(implPath, []byte(impl), 0o644); err != nil {
		return err
	}

	if emitOnly {
		return nil
	}
	return compile(implPath, base, proj)
}

// compile invokes the C toolchain on the emitted implementation file,
// following spec §6.2's CC/CFLAGS/LDLIBS environment-variable handoff: a
// non-empty CC replaces tomo.yaml's cc, while CFLAGS and LDLIBS from the
// environment are appended after tomo.yaml's cflags and ldlibs.
func compile(implPath, outBase string, proj *config.Project) error {
	cc := proj.CC
	if cc == "" {
		cc = "cc"
	}
	if v := os.Getenv(config.EnvCC); v != "" {
		cc = v
	}

	args := append([]string{}, proj.CFlags...)
	if v := os.Getenv(config.EnvCFlags); v != "" {
		args = append(args, strings.Fields(v)...)
	}
	for _, lib := range proj.LibraryPaths {
		args = append(args, "-I"+lib)
	}
	args = append(args, implPath, "-o", outBase)
	args = append(args, proj.LDLibs...)
	if v := os.Getenv(config.EnvLDLibs); v != "" {
		args = append(args, strings.Fields(v)...)
	}

	diagnostics.Trace("%s %s", cc, strings.Join(args, " "))
	cmd := exec.Command(cc, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
