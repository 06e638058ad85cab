package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	fennel "github.com/alexander1423576/Fennel"
	"github.com/xyproto/env/v2"
)

const appName = "fennel"

func red(s string) string {
	if env.Bool("NO_COLOR") {
		return s
	}
	return "\x1b[31m" + s + "\x1b[0m"
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "compile":
		os.Exit(cmdCompile(os.Args[2:]))
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "version":
		fmt.Println(fennel.Version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`Fennel %s, a lisp that compiles to Lua

Usage:
  %s compile [-o <out.lua>] <file.fnl> ...   Compile sources to Lua text.
  %s run <file.fnl>                          Compile and run a source file.
  %s version                                 Print the version.

FENNEL_INDENT overrides the indent string used in emitted Lua.
`, fennel.Version, appName, appName, appName)
}

func options(indent string) *fennel.Options {
	return &fennel.Options{Tab: indent}
}

func cmdCompile(args []string) int {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	out := fs.String("o", "", "write output to a file instead of stdout")
	indent := fs.String("indent", env.Str("FENNEL_INDENT", "  "), "indent string for emitted Lua")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s compile [-o <out.lua>] <file.fnl> ...\n", appName)
		return 2
	}

	var b strings.Builder
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, file, err)
			return 1
		}
		code, err := fennel.Compile(string(src), options(*indent))
		if err != nil {
			fmt.Fprintln(os.Stderr, red(fennel.WrapErrorWithSource(err, string(src)).Error()))
			return 1
		}
		b.WriteString(code)
		b.WriteByte('\n')
	}

	if *out == "" {
		fmt.Print(b.String())
		return 0
	}
	if err := os.WriteFile(*out, []byte(b.String()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot write %s: %v\n", appName, *out, err)
		return 1
	}
	return 0
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	indent := fs.String("indent", env.Str("FENNEL_INDENT", "  "), "indent string for emitted Lua")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	files := fs.Args()
	if len(files) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run <file.fnl>\n", appName)
		return 2
	}

	src, err := os.ReadFile(files[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, files[0], err)
		return 1
	}
	rets, err := fennel.Eval(string(src), options(*indent))
	if err != nil {
		fmt.Fprintln(os.Stderr, red(fennel.WrapErrorWithSource(err, string(src)).Error()))
		return 1
	}
	for _, v := range rets {
		fmt.Println(v)
	}
	return 0
}
