// Command retgrep searches files or stdin line by line with a retrace
// pattern, highlighting matches and capture groups. It is a thin consumer
// of the library API.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/coregx/retrace"
)

var groupColors = []*color.Color{
	color.New(color.FgRed),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
	color.New(color.FgMagenta),
	color.New(color.FgCyan),
}

var cli struct {
	Pattern    string   `arg:"" name:"pattern" help:"Pattern to search for (Python re syntax)."`
	Paths      []string `arg:"" optional:"" name:"path" help:"Files or directories to search; stdin when absent." type:"path"`
	IgnoreCase bool     `short:"i" help:"Case-insensitive matching."`
	ASCIIMode  bool     `name:"ascii" short:"a" help:"ASCII-only classes and folding."`
	Verbose    bool     `short:"x" help:"Verbose pattern syntax (whitespace and # comments ignored)."`
	MaxSteps   int      `default:"1000000" help:"Backtracking step budget per attempt."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("retgrep"),
		kong.Description("Searches files for lines matching a backtracking regex pattern."),
		kong.UsageOnError(),
	)

	var flags retrace.Flags
	if cli.IgnoreCase {
		flags |= retrace.IGNORECASE
	}
	if cli.ASCIIMode {
		flags |= retrace.ASCII
	}
	if cli.Verbose {
		flags |= retrace.VERBOSE
	}

	config := retrace.DefaultConfig()
	config.MaxSteps = cli.MaxSteps

	p, err := retrace.CompileWithConfig(cli.Pattern, flags, config)
	if err != nil {
		log.Fatalf("failed to compile pattern: %v", err)
	}

	if len(cli.Paths) == 0 {
		if err := searchReader(p, "", bufio.NewScanner(os.Stdin)); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	for _, path := range cli.Paths {
		info, err := os.Lstat(path)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}

		if info.IsDir() {
			err = searchDir(p, path)
		} else {
			err = searchFile(p, path)
		}
		if err != nil {
			log.Fatalf("%v", err)
		}
	}
}

func searchDir(p *retrace.Pattern, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			// Broken symlinks are skipped, not fatal.
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		return searchFile(p, path)
	})
}

func searchFile(p *retrace.Pattern, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return searchReader(p, path, bufio.NewScanner(f))
}

func searchReader(p *retrace.Pattern, path string, scanner *bufio.Scanner) error {
	printedHeader := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		highlighted, matched, err := highlightLine(p, line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if !matched {
			continue
		}

		if path != "" && !printedHeader {
			printedHeader = true
			fmt.Println(path, ":")
		}
		fmt.Printf("%d:%s\n", lineNo, highlighted)
	}
	if printedHeader {
		fmt.Println()
	}
	return scanner.Err()
}

// highlightLine renders one line with every match colored; capture
// groups get their own colors when the pattern has few enough.
func highlightLine(p *retrace.Pattern, line string) (string, bool, error) {
	out := strings.Builder{}
	last := 0
	matched := false

	for m, err := range p.FindIter(line) {
		if err != nil {
			return "", false, err
		}
		matched = true
		out.WriteString(line[last:m.Start()])
		out.WriteString(formatMatch(p, m, line))
		last = m.End()
	}
	if !matched {
		return "", false, nil
	}
	out.WriteString(line[last:])
	return out.String(), true, nil
}

func formatMatch(p *retrace.Pattern, m *retrace.Match, line string) string {
	if p.NumGroups() == 0 || p.NumGroups() >= len(groupColors) {
		return groupColors[0].Sprint(m.Text())
	}

	out := strings.Builder{}
	pos := m.Start()
	for i := 1; i <= p.NumGroups(); i++ {
		start, end := m.Span(i)
		if start < 0 || start < pos {
			continue
		}
		groupColors[0].Fprint(&out, line[pos:start])
		groupColors[i].Fprint(&out, line[start:end])
		pos = end
	}
	groupColors[0].Fprint(&out, line[pos:m.End()])
	return out.String()
}
