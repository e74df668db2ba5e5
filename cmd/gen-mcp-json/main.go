package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	cfg "github.com/alex-galey/docking-mcp/pkg/config"
	"github.com/spf13/viper"
)

type mcpJSON struct {
	MCpServers map[string]serverDef `json:"mcpServers"`
}

type serverDef struct {
	Command string     `json:"command,omitempty"`
	Args    []string   `json:"args,omitempty"`
	Env     orderedEnv `json:"env,omitempty"`
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

func main() {
	// Loading populates viper with every default and override
	config, err := cfg.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The MCP client may start the server from any directory.
	workDir := config.WorkDir
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}

	m := mcpJSON{
		MCpServers: map[string]serverDef{
			"docking": {
				Command: resolveCommand(os.Getenv),
				Args:    []string{},
				Env:     serverEnv(viper.AllSettings(), workDir),
			},
		},
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal .mcp.json: %v\n", err)
		os.Exit(1)
	}

	wd, _ := os.Getwd()
	root, err := findModuleRoot(wd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate module root: %v\n", err)
		os.Exit(1)
	}
	outPath := filepath.Join(root, ".mcp.json")
	if err := os.WriteFile(outPath, append(data, '\n'), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write .mcp.json: %v\n", err)
		os.Exit(1)
	}
}

// resolveCommand picks the server binary: DOCKING_MCP_GEN_COMMAND, then
// BUILD_DIR/BINARY_NAME, then the default build output.
func resolveCommand(getenv func(string) string) string {
	if command := getenv("DOCKING_MCP_GEN_COMMAND"); command != "" {
		return command
	}
	buildDir, binName := getenv("BUILD_DIR"), getenv("BINARY_NAME")
	if buildDir != "" && binName != "" {
		return filepath.ToSlash(filepath.Join(buildDir, binName))
	}
	return filepath.ToSlash(filepath.Join("./build", "docking-mcp"))
}

func serverEnv(settings map[string]any, workDir string) orderedEnv {
	flat := make(map[string]any)
	flattenMap("", settings, flat)
	env := make(orderedEnv, len(flat)+1)
	for k, v := range flat {
		env[toEnvKey(k)] = anyToString(v)
	}
	env[toEnvKey("work_dir")] = workDir
	return env
}

func toEnvKey(dotKey string) string {
	return "DOCKING_MCP_" + strings.ToUpper(strings.ReplaceAll(dotKey, ".", "_"))
}

// orderedEnv marshals map[string]string with deterministic key order (alphabetical).
type orderedEnv map[string]string

func (o orderedEnv) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, k := range keys {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// flattenMap flattens nested maps into dot-separated keys
func flattenMap(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flattenMap(key, t, out)
		case map[any]any:
			m := make(map[string]any)
			for kk, vv := range t {
				m[fmt.Sprint(kk)] = vv
			}
			flattenMap(key, m, out)
		default:
			out[key] = v
		}
	}
}

func anyToString(v any) string {
	switch vv := v.(type) {
	case []string:
		return strings.Join(vv, ",")
	case []any:
		parts := make([]string, 0, len(vv))
		for _, e := range vv {
			parts = append(parts, fmt.Sprint(e))
		}
		return strings.Join(parts, ",")
	case bool:
		return strconv.FormatBool(vv)
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case time.Duration:
		return vv.String()
	case string:
		return vv
	default:
		return fmt.Sprint(v)
	}
}
