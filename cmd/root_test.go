package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidroman0O/poecycle/errors"
	"github.com/davidroman0O/poecycle/pkg/config"
	"github.com/davidroman0O/poecycle/pkg/cycle"
)

const exampleConfig = `[_controller]
url = https://unifi.lan:8443
username = admin
password = m3g4l0m4n14c

[device1]
mac = 11:22:33:44:55:66
port = 1

[device3]
mac = 11:22:33:44:55:66
port = 3

[halfdone]
mac = 11:22:33:44:55:66
`

// mockController implements cycle.Controller for testing
type mockController struct {
	mock.Mock
}

func (m *mockController) Login(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockController) PowerCycle(ctx context.Context, mac, port string) error {
	return m.Called(mac, port).Error(0)
}

func (m *mockController) Logout(ctx context.Context) error {
	return m.Called().Error(0)
}

// harness runs the root command in-process
type harness struct {
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	ctrl     *mockController
	opened   int
	released int
	cfg      config.ControllerConfig
}

func (h *harness) run(t *testing.T, configContent string, args ...string) int {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unifi-config")
	if configContent != "" {
		require.NoError(t, os.WriteFile(path, []byte(configContent), 0600))
	}
	return h.runWithPath(path, args...)
}

func (h *harness) runWithPath(path string, args ...string) int {
	if h.ctrl == nil {
		h.ctrl = &mockController{}
	}
	root := NewRootCommand(Dependencies{
		Stdout: &h.stdout,
		Stderr: &h.stderr,
		NewController: func(cfg config.ControllerConfig, debug bool, logger *slog.Logger) (cycle.Controller, func(), error) {
			h.opened++
			h.cfg = cfg
			return h.ctrl, func() { h.released++ }, nil
		},
	})
	return execute(context.Background(), root, append([]string{"-c", path}, args...))
}

func (h *harness) lines() []string {
	return strings.Split(strings.TrimRight(h.stdout.String(), "\n"), "\n")
}

func TestCycleSingleDevice(t *testing.T) {
	h := &harness{ctrl: &mockController{}}
	h.ctrl.On("Login").Return(nil).Once()
	h.ctrl.On("PowerCycle", "11:22:33:44:55:66", "1").Return(nil).Once()
	h.ctrl.On("Logout").Return(nil).Once()

	code := h.run(t, exampleConfig, "device1")

	assert.Equal(t, 0, code)
	h.ctrl.AssertExpectations(t)
	assert.Equal(t, []string{"Power cycling device device1 on switch 11:22:33:44:55:66 port 1"}, h.lines())
	assert.Equal(t, 1, h.opened)
	assert.Equal(t, 1, h.released)
	assert.Equal(t, config.ControllerConfig{
		BaseURL:  "https://unifi.lan:8443",
		Username: "admin",
		Password: "m3g4l0m4n14c",
		Site:     "default",
	}, h.cfg)
}

func TestCycleUnknownDeviceAborts(t *testing.T) {
	h := &harness{}

	code := h.run(t, exampleConfig, "device1", "device2")

	assert.Equal(t, 1, code)
	assert.Equal(t, []string{"Unknown device: device2", "Aborting"}, h.lines())
	assert.Zero(t, h.opened)
	h.ctrl.AssertNotCalled(t, "Login")
	// Already reported on stdout
	assert.NotContains(t, h.stderr.String(), "Error:")
}

func TestCycleReportsAllProblems(t *testing.T) {
	h := &harness{}

	code := h.run(t, exampleConfig, "ghost", "halfdone", "device1", "phantom")

	assert.Equal(t, 1, code)
	assert.Equal(t, []string{
		"Unknown device: ghost",
		"port not specified for halfdone",
		"Unknown device: phantom",
		"Aborting",
	}, h.lines())
	assert.Zero(t, h.opened)
}

func TestCycleDryRun(t *testing.T) {
	h := &harness{}

	code := h.run(t, exampleConfig, "-n", "device3", "device1")

	assert.Equal(t, 0, code)
	assert.Equal(t, []string{
		"Power cycling device device3 on switch 11:22:33:44:55:66 port 3",
		"Power cycling device device1 on switch 11:22:33:44:55:66 port 1",
	}, h.lines())
	assert.Zero(t, h.opened)
	assert.Empty(t, h.ctrl.Calls)
}

func TestCyclePowerCycleFailure(t *testing.T) {
	h := &harness{ctrl: &mockController{}}
	h.ctrl.On("Login").Return(nil).Once()
	h.ctrl.On("PowerCycle", "11:22:33:44:55:66", "3").
		Return(errors.New(errors.ErrController, "power-cycle rejected")).Once()
	h.ctrl.On("Logout").Return(nil).Once()

	code := h.run(t, exampleConfig, "device3", "device1")

	assert.Equal(t, 1, code)
	h.ctrl.AssertExpectations(t)
	h.ctrl.AssertNotCalled(t, "PowerCycle", "11:22:33:44:55:66", "1")
	assert.Contains(t, h.stderr.String(), "Error: power cycling device3: power-cycle rejected")
	assert.Equal(t, 1, h.released)
}

func TestCycleLoginFailure(t *testing.T) {
	h := &harness{ctrl: &mockController{}}
	h.ctrl.On("Login").Return(errors.New(errors.ErrAuth, "login rejected")).Once()

	code := h.run(t, exampleConfig, "device1")

	assert.Equal(t, 1, code)
	assert.Empty(t, h.stdout.String())
	assert.Contains(t, h.stderr.String(), "login rejected")
}

func TestListMode(t *testing.T) {
	h := &harness{}

	// Names are ignored once -l is given
	code := h.run(t, exampleConfig, "-l", "ghost", "device3")

	assert.Equal(t, 0, code)
	assert.Equal(t, []string{
		"Device                         MAC address          Port",
		"device1                        11:22:33:44:55:66    1",
		"device3                        11:22:33:44:55:66    3",
		"halfdone                       11:22:33:44:55:66    <undefined>",
	}, h.lines())
	assert.Zero(t, h.opened)
}

func TestListModeJSON(t *testing.T) {
	h := &harness{}

	code := h.run(t, exampleConfig, "--list", "-o", "json")

	assert.Equal(t, 0, code)
	assert.Contains(t, h.stdout.String(), `"name": "halfdone"`)
	assert.Contains(t, h.stdout.String(), `"port": "<undefined>"`)
}

func TestListModeBadFormat(t *testing.T) {
	h := &harness{}

	code := h.run(t, exampleConfig, "-l", "-o", "xml")

	assert.Equal(t, 2, code)
	assert.Contains(t, h.stderr.String(), `unknown output format "xml"`)
}

func TestMissingControllerSection(t *testing.T) {
	for name, content := range map[string]string{
		"no controller": "[device1]\nmac = 11:22:33:44:55:66\nport = 1\n",
		"missing file":  "",
	} {
		t.Run(name, func(t *testing.T) {
			h := &harness{}
			path := filepath.Join(t.TempDir(), "unifi-config")
			if content != "" {
				require.NoError(t, os.WriteFile(path, []byte(content), 0600))
			}

			code := h.runWithPath(path, "device1")

			assert.Equal(t, 1, code)
			assert.Equal(t, []string{path + " must contain [_controller] section"}, h.lines())
			assert.Zero(t, h.opened)

			// List mode fails the same way
			h = &harness{}
			assert.Equal(t, 1, h.runWithPath(path, "-l"))
		})
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no names and no list", args: nil, want: "one of -l/--list or at least one device name is required"},
		{name: "unknown flag", args: []string{"--bogus"}, want: "invalid flags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &harness{}
			code := h.run(t, exampleConfig, tt.args...)

			assert.Equal(t, 2, code)
			assert.Contains(t, h.stderr.String(), tt.want)
			assert.Contains(t, h.stderr.String(), "Usage:")
			assert.Empty(t, h.stdout.String())
		})
	}
}

func TestLoosePermissionsWarn(t *testing.T) {
	h := &harness{}
	path := filepath.Join(t.TempDir(), "unifi-config")
	require.NoError(t, os.WriteFile(path, []byte(exampleConfig), 0600))
	require.NoError(t, os.Chmod(path, 0644))

	code := h.runWithPath(path, "-n", "device1")

	assert.Equal(t, 0, code)
	assert.Contains(t, h.stderr.String(), "level=WARN")
	assert.Contains(t, h.stderr.String(), "contains credentials")
}
