// This file reads the CIF syntax mmCIF files are written in: data blocks of
// categories, each given as tag/value pairs or as a loop_ table.
package mmcif

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Block is one data_ block of a CIF file.
type Block struct {
	Name       string
	categories map[string]*Category
}

// Category returns the named category, e.g. "atom_site", or nil when the
// block has none.
func (b *Block) Category(name string) *Category {
	return b.categories[name]
}

// Category is a table of items. A category given as plain tag/value pairs
// has a single row.
type Category struct {
	Name  string
	Items []string
	Rows  [][]string
}

// Len returns the number of rows.
func (c *Category) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Rows)
}

// Value returns item of row i. ok is false when the category has no such
// item.
func (c *Category) Value(i int, item string) (value string, ok bool) {
	col := c.column(item)
	if col < 0 || i >= len(c.Rows) {
		return "", false
	}
	return c.Rows[i][col], true
}

// Column returns every value of item, or nil when the category has no such
// item.
func (c *Category) Column(item string) []string {
	col := c.column(item)
	if col < 0 {
		return nil
	}
	values := make([]string, len(c.Rows))
	for i, row := range c.Rows {
		values[i] = row[col]
	}
	return values
}

func (c *Category) column(item string) int {
	if c == nil {
		return -1
	}
	for i, it := range c.Items {
		if it == item {
			return i
		}
	}
	return -1
}

type tokenKind int

const (
	tokenValue tokenKind = iota
	tokenTag
	tokenLoop
	tokenData
)

type token struct {
	kind tokenKind
	text string
}

// Read parses CIF data from r and calls fn with each data block in file
// order. Errors from fn stop the read and are returned as is.
func Read(r io.Reader, fn func(*Block) error) error {
	p := &parser{fn: fn}
	br := bufio.NewReaderSize(r, 1<<16)

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading line %d: %w", p.line+1, err)
		}
		if line == "" && err != nil {
			break
		}
		p.line++
		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, ";") {
			text, rest, terr := readTextField(br, line, &p.line)
			if terr != nil {
				return terr
			}
			if perr := p.token(token{kind: tokenValue, text: text}); perr != nil {
				return p.wrap(perr)
			}
			line = rest
		}

		tokens, terr := splitLine(line)
		if terr != nil {
			return p.wrap(terr)
		}
		for _, t := range tokens {
			if perr := p.token(t); perr != nil {
				return p.wrap(perr)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	return p.finish()
}

// readTextField reads a semicolon-delimited text field whose first line is
// first. It returns the field and whatever follows the closing semicolon.
func readTextField(br *bufio.Reader, first string, lineNo *int) (text, rest string, err error) {
	start := *lineNo
	var b strings.Builder
	b.WriteString(first[1:])
	for {
		line, rerr := br.ReadString('\n')
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return "", "", fmt.Errorf("reading line %d: %w", *lineNo+1, rerr)
		}
		if line == "" && rerr != nil {
			return "", "", fmt.Errorf("line %d: unterminated text field", start)
		}
		*lineNo++
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, ";") {
			return strings.TrimSpace(b.String()), line[1:], nil
		}
		b.WriteByte('\n')
		b.WriteString(line)
		if rerr != nil {
			return "", "", fmt.Errorf("line %d: unterminated text field", start)
		}
	}
}

// splitLine breaks one line into tokens. Quoted values end at a matching
// quote followed by white space, so they may contain the quote character.
func splitLine(line string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(line) {
		if isSpace(line[i]) {
			i++
			continue
		}
		switch c := line[i]; c {
		case '#':
			return tokens, nil
		case '\'', '"':
			end := -1
			for k := i + 1; k < len(line); k++ {
				if line[k] == c && (k+1 == len(line) || isSpace(line[k+1])) {
					end = k
					break
				}
			}
			if end < 0 {
				return nil, fmt.Errorf("unterminated quoted value")
			}
			tokens = append(tokens, token{kind: tokenValue, text: line[i+1 : end]})
			i = end + 1
		default:
			j := i
			for j < len(line) && !isSpace(line[j]) {
				j++
			}
			tokens = append(tokens, classify(line[i:j]))
			i = j
		}
	}
	return tokens, nil
}

// classify returns the token of an unquoted word.
func classify(word string) token {
	lower := strings.ToLower(word)
	switch {
	case word[0] == '_':
		return token{kind: tokenTag, text: lower[1:]}
	case lower == "loop_":
		return token{kind: tokenLoop}
	case strings.HasPrefix(lower, "data_"):
		return token{kind: tokenData, text: word[len("data_"):]}
	}
	return token{kind: tokenValue, text: word}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

// parser assembles tokens into blocks.
type parser struct {
	fn    func(*Block) error
	line  int
	block *Block

	// tag waits for its value outside a loop.
	tag string

	// loop is the loop being read. While header is true its tags are still
	// being listed.
	loop   *Category
	header bool
	row    []string
}

func (p *parser) token(t token) error {
	switch t.kind {
	case tokenData:
		if err := p.finishBlock(); err != nil {
			return err
		}
		p.block = &Block{Name: t.text, categories: make(map[string]*Category)}
		return nil
	case tokenLoop:
		if err := p.open(); err != nil {
			return err
		}
		if err := p.finishLoop(); err != nil {
			return err
		}
		if p.tag != "" {
			return fmt.Errorf("tag _%s without value", p.tag)
		}
		p.loop = &Category{}
		p.header = true
		return nil
	case tokenTag:
		if err := p.open(); err != nil {
			return err
		}
		category, item := splitTag(t.text)
		if p.loop != nil && p.header {
			if len(p.loop.Items) > 0 && p.loop.Name != category {
				return fmt.Errorf("loop mixes categories %s and %s", p.loop.Name, category)
			}
			p.loop.Name = category
			p.loop.Items = append(p.loop.Items, item)
			return nil
		}
		if err := p.finishLoop(); err != nil {
			return err
		}
		if p.tag != "" {
			return fmt.Errorf("tag _%s without value", p.tag)
		}
		p.tag = t.text
		return nil
	}

	if p.loop != nil {
		if len(p.loop.Items) == 0 {
			return fmt.Errorf("loop without tags")
		}
		p.header = false
		p.row = append(p.row, t.text)
		if len(p.row) == len(p.loop.Items) {
			p.loop.Rows = append(p.loop.Rows, p.row)
			p.row = nil
		}
		return nil
	}
	if p.tag == "" {
		return fmt.Errorf("value %q without tag", t.text)
	}
	category, item := splitTag(p.tag)
	c := p.category(category)
	if len(c.Rows) == 0 {
		c.Rows = [][]string{nil}
	}
	c.Items = append(c.Items, item)
	c.Rows[0] = append(c.Rows[0], t.text)
	p.tag = ""
	return nil
}

// open fails when data appears before the first data_ header.
func (p *parser) open() error {
	if p.block == nil {
		return fmt.Errorf("data outside a data block")
	}
	return nil
}

func (p *parser) category(name string) *Category {
	c, ok := p.block.categories[name]
	if !ok {
		c = &Category{Name: name}
		p.block.categories[name] = c
	}
	return c
}

func (p *parser) finishLoop() error {
	if p.loop == nil {
		return nil
	}
	loop := p.loop
	p.loop = nil
	if len(p.row) > 0 {
		return fmt.Errorf("loop of %s ends with %d values for %d items", loop.Name, len(p.row), len(loop.Items))
	}
	if len(loop.Items) == 0 {
		return fmt.Errorf("loop without tags")
	}
	p.block.categories[loop.Name] = loop
	return nil
}

func (p *parser) finishBlock() error {
	if p.block == nil {
		return nil
	}
	if err := p.finishLoop(); err != nil {
		return err
	}
	if p.tag != "" {
		return fmt.Errorf("tag _%s without value", p.tag)
	}
	block := p.block
	p.block = nil
	if err := p.fn(block); err != nil {
		return &blockError{err}
	}
	return nil
}

func (p *parser) finish() error {
	if err := p.finishBlock(); err != nil {
		return p.wrap(err)
	}
	return nil
}

// blockError carries an error of the block callback through the parser.
type blockError struct {
	err error
}

func (e *blockError) Error() string { return e.err.Error() }

// wrap adds the current line number to syntax errors. Errors of the block
// callback are returned as is.
func (p *parser) wrap(err error) error {
	var be *blockError
	if errors.As(err, &be) {
		return be.err
	}
	return &SyntaxError{Line: p.line, Err: err}
}

// SyntaxError reports malformed CIF at a line.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// splitTag splits "atom_site.label_asym_id" into its category and item.
func splitTag(tag string) (category, item string) {
	category, item, _ = strings.Cut(tag, ".")
	return category, item
}
