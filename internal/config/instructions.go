package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ddtlab/ddt/instructions"
)

// Instructions is the text bundle shown on the blocking screens.
// Templates take positional placeholders, see Format.
type Instructions struct {
	Intro              string   `yaml:"intro"`
	TrainBefore        []string `yaml:"train_before"`
	TrainAfter         string   `yaml:"train_after"`
	SessionStartSingle string   `yaml:"session_start_single"` // {0}=current, {1}=count
	SessionStartMulti  string   `yaml:"session_start_multi"`  // {0}=current, {1}=count
	MainBefore         string   `yaml:"main_before"`          // {0}=session, {1}=trials
	SessionComplete    string   `yaml:"session_complete"`     // {0}=previous, {1}=next, {2}=count
	Outro              string   `yaml:"outro"`
}

// LoadInstructions reads the bundle at path, or the built-in bundle
// when path is empty.
func LoadInstructions(path string) (*Instructions, error) {
	data := []byte(instructions.Default)
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading instructions: %w", err)
		}
	}

	var in Instructions
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing instructions: %w", err)
	}

	return &in, nil
}

// SessionStart renders the session start message, choosing the single or
// multi-session variant by count.
func (in *Instructions) SessionStart(current, count int) string {
	if count > 1 {
		return Format(in.SessionStartMulti, current, count)
	}
	return Format(in.SessionStartSingle, current, count)
}

// MainBeforeText renders the message shown before a session's trials.
func (in *Instructions) MainBeforeText(session, trials int) string {
	return Format(in.MainBefore, session, trials)
}

// SessionCompleteText renders the message shown between sessions.
func (in *Instructions) SessionCompleteText(previous, next, count int) string {
	return Format(in.SessionComplete, previous, next, count)
}

// Format substitutes positional placeholders in tmpl. "{}" takes the next
// argument in order and "{N}" takes argument N (0-based). "{{" and "}}"
// are literal braces. Placeholders without a matching argument are left
// as written.
func Format(tmpl string, args ...any) string {
	var b strings.Builder
	next := 0

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}' {
			b.WriteByte('}')
			i++
			continue
		}
		if c != '{' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(tmpl) && tmpl[i+1] == '{' {
			b.WriteByte('{')
			i++
			continue
		}

		end := strings.IndexByte(tmpl[i:], '}')
		if end < 0 {
			b.WriteString(tmpl[i:])
			break
		}
		field := tmpl[i+1 : i+end]

		idx := -1
		if field == "" {
			idx = next
			next++
		} else if n, err := strconv.Atoi(field); err == nil {
			idx = n
		}

		if idx >= 0 && idx < len(args) {
			fmt.Fprint(&b, args[idx])
		} else {
			b.WriteString(tmpl[i : i+end+1])
		}
		i += end
	}

	return b.String()
}
