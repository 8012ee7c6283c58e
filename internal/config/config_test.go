package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testYAML = `
gimbal:
  pitch_min: -0.17
  pitch_max: 0.87
  has_yaw_limits: false
logs:
  - name: root
    level: info
    appenders:
      - type: StdoutLogAppender
        pattern: "%d{2006-01-02} %p %c - %m%n"
usb:
  device_path: /dev/ttyUSB0
  baud: 115200
`

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sentry.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FlattensDottedLowercaseKeys(t *testing.T) {
	path := writeTestConfig(t, testYAML)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := reg.GetFloat("gimbal.pitch_min", 0); got != -0.17 {
		t.Errorf("gimbal.pitch_min = %v, want -0.17", got)
	}
	if got := reg.GetBool("gimbal.has_yaw_limits", true); got != false {
		t.Errorf("gimbal.has_yaw_limits = %v, want false", got)
	}
	if got := reg.GetString("usb.device_path", ""); got != "/dev/ttyUSB0" {
		t.Errorf("usb.device_path = %q, want /dev/ttyUSB0", got)
	}
}

func TestGet_MissingKeyReturnsNotOK(t *testing.T) {
	path := writeTestConfig(t, testYAML)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := reg.Get("does.not.exist"); ok {
		t.Error("expected missing key to report ok=false")
	}
}

func TestSection_ReturnsRawSubtree(t *testing.T) {
	path := writeTestConfig(t, testYAML)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	section, ok := reg.Section("logs")
	if !ok {
		t.Fatal("expected logs section to be present")
	}
	if _, ok := section.([]Node); !ok {
		t.Errorf("expected logs section to decode as a sequence, got %T", section)
	}
}

func TestWatch_FiresListenerOnReload(t *testing.T) {
	path := writeTestConfig(t, testYAML)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	fired := make(chan Node, 1)
	reg.OnChange("logs", func(n Node) { fired <- n })

	if err := reg.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer reg.Stop()

	updated := testYAML + "\nextra: true\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload listener")
	}
}
