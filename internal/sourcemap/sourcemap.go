package sourcemap

import (
	"encoding/json"
	"errors"
	"strings"
)

// SourceMap is a Source Map v3 document.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// Mapping is one decoded segment. Lines are 0-based.
type Mapping struct {
	GenLine int
	GenCol  int
	SrcLine int
	SrcCol  int
}

// Generator builds a line granular source map for a single source.
type Generator struct {
	file       string
	sourceName string
	content    string
	lines      []int // 1-based source line per generated line, 0 when unmapped
}

func NewGenerator(file, sourceName string) *Generator {
	return &Generator{file: file, sourceName: sourceName}
}

// IncludeSource embeds source in sourcesContent.
func (g *Generator) IncludeSource(source string) {
	g.content = source
}

// AddLine maps the 0-based generated line to the 1-based source line.
// Source line 0 leaves the generated line unmapped.
func (g *Generator) AddLine(genLine, srcLine int) {
	for len(g.lines) <= genLine {
		g.lines = append(g.lines, 0)
	}
	g.lines[genLine] = srcLine
}

// AddLines maps consecutive generated lines starting at line 0.
func (g *Generator) AddLines(srcLines []int) {
	for i, l := range srcLines {
		g.AddLine(i, l)
	}
}

func (g *Generator) Generate() *SourceMap {
	sm := &SourceMap{
		Version:  3,
		File:     g.file,
		Sources:  []string{},
		Names:    []string{},
		Mappings: g.encode(),
	}
	if g.sourceName != "" {
		sm.Sources = []string{g.sourceName}
	}
	if g.content != "" {
		sm.SourcesContent = []string{g.content}
	}
	return sm
}

// encode writes one segment per mapped line. Only the source line changes
// between segments, so the other fields are deltas of zero after the first.
func (g *Generator) encode() string {
	var sb strings.Builder
	prevSrc := 0
	for i, l := range g.lines {
		if i > 0 {
			sb.WriteByte(';')
		}
		if l < 1 {
			continue
		}
		writeVLQ(&sb, 0) // generated column, reset every line
		writeVLQ(&sb, 0) // source index
		writeVLQ(&sb, l-1-prevSrc)
		writeVLQ(&sb, 0) // source column
		prevSrc = l - 1
	}
	return sb.String()
}

// DecodeMappings decodes a mappings string. Segments with a single field
// carry no source position and are skipped.
func DecodeMappings(mappings string) ([]Mapping, error) {
	var out []Mapping
	var srcLine, srcCol int
	for genLine, line := range strings.Split(mappings, ";") {
		genCol := 0
		for _, segment := range strings.Split(line, ",") {
			if segment == "" {
				continue
			}
			var fields [5]int
			n := 0
			for pos := 0; pos < len(segment); n++ {
				if n == len(fields) {
					return nil, errors.New("source map segment has more than five fields")
				}
				v, consumed := DecodeVLQ(segment[pos:])
				if consumed == 0 {
					return nil, errors.New("invalid VLQ in source map segment '" + segment + "'")
				}
				fields[n] = v
				pos += consumed
			}
			genCol += fields[0]
			if n < 4 {
				continue
			}
			srcLine += fields[2]
			srcCol += fields[3]
			out = append(out, Mapping{GenLine: genLine, GenCol: genCol, SrcLine: srcLine, SrcCol: srcCol})
		}
	}
	return out, nil
}

// Parse reads a JSON source map.
func Parse(data []byte) (*SourceMap, error) {
	var sm SourceMap
	if err := json.Unmarshal(data, &sm); err != nil {
		return nil, err
	}
	if sm.Version != 3 {
		return nil, errors.New("unsupported source map version")
	}
	return &sm, nil
}

// ToJSON returns the source map as JSON.
func (sm *SourceMap) ToJSON() string {
	data, _ := json.Marshal(sm)
	return string(data)
}

// ToComment returns the GLSL comment that points at the map file.
func (sm *SourceMap) ToComment() string {
	return "//# sourceMappingURL=" + sm.File + ".map"
}

// SourceLines decodes the map into 1-based source lines per generated line,
// the shape used by line lookups.
func (sm *SourceMap) SourceLines() ([]int, error) {
	mappings, err := DecodeMappings(sm.Mappings)
	if err != nil {
		return nil, err
	}
	var lines []int
	for _, m := range mappings {
		for len(lines) <= m.GenLine {
			lines = append(lines, 0)
		}
		if lines[m.GenLine] == 0 {
			lines[m.GenLine] = m.SrcLine + 1
		}
	}
	return lines, nil
}
