// Package collapsed reads folded stacks, one sample per line:
//
//	main;parse;lex 12
//	/bin/a.out+0x4f0;libc.so.6+0x2a1c0 3
//
// Frames run from the outermost caller to the innermost callee. A frame
// written as module+offset becomes that address in the module; any other
// frame is a symbol and gets a load module of its own, at offset 0.
package collapsed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hpcprof/cct/internal/cct"
)

// ErrMalformed is wrapped by every parse error.
var ErrMalformed = errors.New("collapsed: malformed line")

const maxLineSize = 4 << 20

type (
	// Resolver maps a load module name to its id.
	Resolver interface {
		ID(name string) (uint16, error)
	}

	Sample struct {
		Frames []cct.Frame
		Count  uint64
	}

	Parser struct {
		modules Resolver
	}
)

func NewParser(modules Resolver) *Parser {
	return &Parser{modules: modules}
}

// Parse calls fn for every sample in r. Blank lines and lines starting
// with '#' are skipped. Parsing stops at the first error, including one
// returned by fn.
func (p *Parser) Parse(r io.Reader, fn func(Sample) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		s, err := p.ParseLine(text)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ParseLine parses a single folded stack.
func (p *Parser) ParseLine(text string) (Sample, error) {
	i := strings.LastIndexAny(text, " \t")
	if i < 0 {
		return Sample{}, fmt.Errorf("%w: missing count", ErrMalformed)
	}
	count, err := strconv.ParseUint(text[i+1:], 10, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: bad count %q", ErrMalformed, text[i+1:])
	}
	stack := strings.TrimSpace(text[:i])
	if stack == "" {
		return Sample{}, fmt.Errorf("%w: empty stack", ErrMalformed)
	}
	names := strings.Split(stack, ";")
	s := Sample{Count: count, Frames: make([]cct.Frame, 0, len(names))}
	for _, name := range names {
		if name == "" {
			return Sample{}, fmt.Errorf("%w: empty frame", ErrMalformed)
		}
		f, err := p.frame(name)
		if err != nil {
			return Sample{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		s.Frames = append(s.Frames, f)
	}
	return s, nil
}

func (p *Parser) frame(name string) (cct.Frame, error) {
	if i := strings.LastIndex(name, "+"); i > 0 {
		if off, err := strconv.ParseUint(name[i+1:], 0, 64); err == nil {
			lm, err := p.modules.ID(name[:i])
			if err != nil {
				return cct.Frame{}, err
			}
			return cct.Frame{Addr: cct.NewAddr(lm, off)}, nil
		}
	}
	lm, err := p.modules.ID(name)
	if err != nil {
		return cct.Frame{}, err
	}
	addr := cct.NewAddr(lm, 0)
	return cct.Frame{Addr: addr, Function: addr}, nil
}
