package depgraph

import (
	"strings"
	"testing"
	"time"
)

func TestNodeKey(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"lodash", "4.17.21", "lodash@4.17.21"},
		{"@scope/pkg", "1.0.0", "@scope/pkg@1.0.0"},
		{"pkg", "unknown", "pkg@unknown"},
	}
	for _, tt := range tests {
		n := NewNode(tt.name, tt.version)
		if got := n.Key(); got != tt.want {
			t.Errorf("Key(%s, %s) = %q, want %q", tt.name, tt.version, got, tt.want)
		}
	}
}

func TestNodeValidate(t *testing.T) {
	tests := []struct {
		desc    string
		node    *DependencyNode
		wantErr bool
	}{
		{"valid", NewNode("lib", "1.0.0"), false},
		{"non-semver version is legal", NewNode("lib", "unknown"), false},
		{"nil node", nil, true},
		{"empty name", NewNode("", "1.0.0"), true},
		{"empty version", NewNode("lib", ""), true},
		{"path traversal in name", NewNode("../etc/passwd", "1.0.0"), true},
		{"control character in name", NewNode("lib\x00", "1.0.0"), true},
		{"name too long", NewNode(strings.Repeat("a", 257), "1.0.0"), true},
		{"version too long", NewNode("lib", strings.Repeat("1", 129)), true},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			err := tt.node.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddChildLazyMap(t *testing.T) {
	var n DependencyNode
	n.Name = "parent"
	n.Version = "1.0.0"
	n.AddChild(NewNode("child", "1.0.0"))

	if len(n.Children) != 1 {
		t.Fatalf("got %d children, want 1", len(n.Children))
	}
	if n.Children["child"].Version != "1.0.0" {
		t.Error("child not attached under its name")
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()

	if cfg.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", cfg.MaxDepth, DefaultMaxDepth)
	}
	if cfg.MaxNodes != DefaultMaxNodes {
		t.Errorf("MaxNodes = %d, want %d", cfg.MaxNodes, DefaultMaxNodes)
	}
	if cfg.MaxProcessingTime != DefaultMaxProcessingTime {
		t.Errorf("MaxProcessingTime = %v, want %v", cfg.MaxProcessingTime, DefaultMaxProcessingTime)
	}
	if cfg.MemoryWarningMB != DefaultMemoryWarningMB || cfg.MemoryCriticalMB != DefaultMemoryCriticalMB {
		t.Errorf("memory thresholds = %v/%v, want %v/%v",
			cfg.MemoryWarningMB, cfg.MemoryCriticalMB, DefaultMemoryWarningMB, DefaultMemoryCriticalMB)
	}
}

func TestConfigWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{MaxDepth: 7, MaxProcessingTime: time.Second}.WithDefaults()

	if cfg.MaxDepth != 7 {
		t.Errorf("MaxDepth = %d, want 7", cfg.MaxDepth)
	}
	if cfg.MaxProcessingTime != time.Second {
		t.Errorf("MaxProcessingTime = %v, want 1s", cfg.MaxProcessingTime)
	}
	if cfg.MaxNodes != DefaultMaxNodes {
		t.Errorf("MaxNodes = %d, want default %d", cfg.MaxNodes, DefaultMaxNodes)
	}
}
