package agentfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjregee/aip/internal/models"
)

const Ext = ".aip"

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionOptions
	sectionBeforeAll
	sectionData
	sectionOutput
	sectionAfterAll
	sectionSystem
	sectionInstruction
	sectionAssistant
)

// Longer names first so "before all" wins over shorter prefixes.
var sectionNames = []struct {
	name string
	kind sectionKind
}{
	{"instruction", sectionInstruction},
	{"before all", sectionBeforeAll},
	{"after all", sectionAfterAll},
	{"assistant", sectionAssistant},
	{"options", sectionOptions},
	{"system", sectionSystem},
	{"output", sectionOutput},
	{"data", sectionData},
}

type section struct {
	kind       sectionKind
	optionsStr *string
	lines      []string
}

// Load reads and parses an agent file. base is the option layer the file's
// # Options section is merged over.
func Load(path string, base models.AgentOptions) (*models.Agent, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent file %s: %w", path, err)
	}

	agent, err := Parse(path, string(content), base)
	if err != nil {
		return nil, err
	}

	return agent, nil
}

// Parse builds an Agent from the markdown content of an agent file.
func Parse(path string, content string, base models.AgentOptions) (*models.Agent, error) {
	sections, err := splitSections(content)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent file %s: %w", path, err)
	}

	agent := &models.Agent{
		Name:     agentName(path),
		FilePath: path,
		FileDir:  filepath.Dir(path),
		Options:  base,
	}

	for _, sec := range sections {
		switch sec.kind {
		case sectionOptions:
			block, ok := codeBlock(sec.lines, "yaml", "yml")
			if !ok {
				continue
			}
			var overlay models.AgentOptions
			if err := yaml.Unmarshal([]byte(block), &overlay); err != nil {
				return nil, fmt.Errorf("parse options of agent file %s: %w", path, err)
			}
			agent.Options = agent.Options.MergeNew(overlay)
		case sectionBeforeAll:
			agent.BeforeAllScript = scriptBlock(sec.lines)
		case sectionData:
			agent.DataScript = scriptBlock(sec.lines)
		case sectionOutput:
			agent.OutputScript = scriptBlock(sec.lines)
		case sectionAfterAll:
			agent.AfterAllScript = scriptBlock(sec.lines)
		case sectionSystem:
			agent.PromptParts = append(agent.PromptParts, promptPart(models.PartKindSystem, sec))
		case sectionInstruction:
			agent.PromptParts = append(agent.PromptParts, promptPart(models.PartKindUser, sec))
		case sectionAssistant:
			agent.PromptParts = append(agent.PromptParts, promptPart(models.PartKindAssistant, sec))
		}
	}

	return agent, nil
}

func agentName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func splitSections(content string) ([]*section, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		sections []*section
		current  = &section{kind: sectionNone}
		fence    int
	)

	for scanner.Scan() {
		line := scanner.Text()

		if fence > 0 {
			if n, info := fenceMarker(line); n >= fence && info == "" {
				fence = 0
			}
			current.lines = append(current.lines, line)
			continue
		}

		if n, _ := fenceMarker(line); n > 0 {
			fence = n
			current.lines = append(current.lines, line)
			continue
		}

		if heading, ok := strings.CutPrefix(line, "# "); ok {
			sections = append(sections, current)
			current = newSection(heading)
			continue
		}

		current.lines = append(current.lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return append(sections, current), nil
}

func newSection(heading string) *section {
	heading = strings.TrimSpace(heading)
	lower := strings.ToLower(heading)

	for _, s := range sectionNames {
		if lower == s.name {
			return &section{kind: s.kind}
		}
		if strings.HasPrefix(lower, s.name+" ") {
			opts := strings.TrimSpace(heading[len(s.name):])
			return &section{kind: s.kind, optionsStr: &opts}
		}
	}

	return &section{kind: sectionNone}
}

// fenceMarker returns the number of backticks opening line (0 when the line is
// not a fence, fewer than 3 backticks) and the info string after them.
func fenceMarker(line string) (int, string) {
	trimmed := strings.TrimSpace(line)
	n := 0
	for n < len(trimmed) && trimmed[n] == '`' {
		n++
	}
	if n < 3 {
		return 0, ""
	}
	return n, strings.TrimSpace(trimmed[n:])
}

// codeBlock returns the content of the first fenced block whose language is
// one of langs.
func codeBlock(lines []string, langs ...string) (string, bool) {
	for i := 0; i < len(lines); i++ {
		n, info := fenceMarker(lines[i])
		if n == 0 {
			continue
		}

		var body []string
		j := i + 1
		for ; j < len(lines); j++ {
			if m, rest := fenceMarker(lines[j]); m >= n && rest == "" {
				break
			}
			body = append(body, lines[j])
		}

		lang := ""
		if fields := strings.Fields(info); len(fields) > 0 {
			lang = strings.ToLower(fields[0])
		}
		for _, l := range langs {
			if lang == l {
				return strings.Join(body, "\n"), true
			}
		}
		i = j
	}

	return "", false
}

func scriptBlock(lines []string) *string {
	block, ok := codeBlock(lines, "lua")
	if !ok {
		return nil
	}
	return &block
}

func promptPart(kind models.PartKind, sec *section) models.PromptPart {
	content := strings.Trim(strings.Join(sec.lines, "\n"), "\n")
	return models.PromptPart{
		Kind:       kind,
		Content:    content,
		OptionsStr: sec.optionsStr,
	}
}
