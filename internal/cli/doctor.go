// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Environment health checks.
//
// Command: doctor
// Aliases: diag
//
// Examples:
//   ragworks doctor           Run all checks
//   ragworks doctor --json    Results as JSON
//
// Checks:
//   1. Config Valid        - configuration loads and validates
//   2. Backend Reachable   - knowledge service answers HTTP
//   3. Auth Reachable      - auth service answers HTTP (when separate)
//   4. Session Store       - session store accepts writes
//   5. Callback Address    - browser sign-in listener can bind
//   6. Signed In           - a session is stored (warning only)
//
// Exit Codes:
//   0   No check failed
//   1   One or more checks failed

package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// probeTimeout bounds each reachability check.
const probeTimeout = 5 * time.Second

// =============================================================================
// HEALTH CHECK TYPES
// =============================================================================

// CheckStatus represents the status of a health check.
type CheckStatus int

const (
	// CheckPass indicates the check passed.
	CheckPass CheckStatus = iota
	// CheckWarn indicates a non-critical issue.
	CheckWarn
	// CheckFail indicates a critical issue.
	CheckFail
)

// String returns the lowercase name used in JSON output.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	case CheckFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns the styled marker for the status.
func (s CheckStatus) Symbol() string {
	switch s {
	case CheckPass:
		return SuccessStyle.Render("[OK]")
	case CheckWarn:
		return WarningStyle.Render("[!!]")
	case CheckFail:
		return ErrorStyle.Render("[FAIL]")
	default:
		return "?"
	}
}

// HealthCheck is a single check result.
type HealthCheck struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"-"`
	Message string      `json:"message"`
	Fix     string      `json:"fix,omitempty"`
	State   string      `json:"status"`
}

// Render formats the check for the terminal.
func (c *HealthCheck) Render() string {
	result := fmt.Sprintf("%s %s", c.Status.Symbol(), c.Message)
	if c.Status != CheckPass && c.Fix != "" {
		result += "\n" + DimStyle.Render("    -> "+c.Fix)
	}
	return result
}

// DoctorSummary counts results by status.
type DoctorSummary struct {
	Passed  int  `json:"passed"`
	Warned  int  `json:"warned"`
	Failed  int  `json:"failed"`
	Healthy bool `json:"healthy"`
}

// DoctorData is the JSON payload of the doctor command.
type DoctorData struct {
	Checks  []*HealthCheck `json:"checks"`
	Summary DoctorSummary  `json:"summary"`
}

func summarize(checks []*HealthCheck) DoctorSummary {
	var s DoctorSummary
	for _, c := range checks {
		c.State = c.Status.String()
		switch c.Status {
		case CheckPass:
			s.Passed++
		case CheckWarn:
			s.Warned++
		case CheckFail:
			s.Failed++
		}
	}
	s.Healthy = s.Failed == 0
	return s
}

// =============================================================================
// COMMAND
// =============================================================================

func newDoctorCommand(g *globalOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"diag"},
		Short:   "Check configuration, connectivity and local state",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checks := runAllChecks(cmd.Context(), g, cmd.ErrOrStderr())
			summary := summarize(checks)

			out := cmd.OutOrStdout()
			if jsonOut {
				resp := NewJSONResponse("doctor", DoctorData{Checks: checks, Summary: summary})
				if !summary.Healthy {
					msg := fmt.Sprintf("%d health check(s) failed", summary.Failed)
					resp.Success = false
					resp.Error = &msg
				}
				if err := resp.Print(out); err != nil {
					return err
				}
			} else {
				printDoctor(out, checks, summary)
			}

			if !summary.Healthy {
				return fmt.Errorf("%d health check(s) failed", summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func printDoctor(w io.Writer, checks []*HealthCheck, s DoctorSummary) {
	fmt.Fprintln(w, TitleStyle.Render("ragworks doctor"))
	fmt.Fprintln(w, RenderSeparator())
	for _, c := range checks {
		fmt.Fprintln(w, c.Render())
	}
	fmt.Fprintln(w, RenderSeparator())

	parts := []string{fmt.Sprintf("%d passed", s.Passed)}
	if s.Warned > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("%d warning", s.Warned)))
	}
	if s.Failed > 0 {
		parts = append(parts, ErrorStyle.Render(fmt.Sprintf("%d failed", s.Failed)))
	}
	fmt.Fprintln(w, strings.Join(parts, ", "))
}

// =============================================================================
// HEALTH CHECK FUNCTIONS
// =============================================================================

// runAllChecks stops after the config check when configuration is
// unusable, since every other check depends on it.
func runAllChecks(ctx context.Context, g *globalOptions, stderr io.Writer) []*HealthCheck {
	cfgCheck := &HealthCheck{Name: "Config Valid", Status: CheckPass, Message: "Config valid"}
	if _, err := g.loadConfig(stderr); err != nil {
		cfgCheck.Status = CheckFail
		cfgCheck.Message = errorText(err)
		cfgCheck.Fix = "Run: ragworks config path, then edit or remove the file"
		return []*HealthCheck{cfgCheck}
	}

	e, err := openEnv(g, stderr, nil)
	if err != nil {
		return []*HealthCheck{cfgCheck, {
			Name: "Session Store", Status: CheckFail, Message: errorText(err),
		}}
	}
	defer e.Close()

	checks := []*HealthCheck{
		cfgCheck,
		checkReachable(ctx, e, "Backend Reachable", "Backend", e.cfg.Backend.URL, "backend.url"),
	}
	if e.cfg.AuthFlow.URL != e.cfg.Backend.URL {
		checks = append(checks,
			checkReachable(ctx, e, "Auth Reachable", "Auth service", e.cfg.AuthFlow.URL, "authflow.url"))
	}
	checks = append(checks,
		checkSessionStore(e),
		checkCallbackAddr(e.cfg.AuthFlow.CallbackAddr),
		checkSignedIn(e),
	)
	return checks
}

func checkReachable(ctx context.Context, e *env, name, label, url, key string) *HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := e.client.Probe(ctx, url); err != nil {
		return &HealthCheck{
			Name:    name,
			Status:  CheckFail,
			Message: fmt.Sprintf("%s not reachable at %s", label, url),
			Fix:     "Run: ragworks config set " + key + " <url>",
		}
	}
	return &HealthCheck{Name: name, Status: CheckPass, Message: fmt.Sprintf("%s reachable at %s", label, url)}
}

const doctorProbeKey = "doctor_probe"

func checkSessionStore(e *env) *HealthCheck {
	check := &HealthCheck{Name: "Session Store"}
	if e.storePath == "" {
		check.Status = CheckWarn
		check.Message = "Session kept in memory only (--ephemeral)"
		return check
	}
	if err := e.store.Set(doctorProbeKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Session store not writable: %s", err)
		check.Fix = "Check permissions on " + e.storePath
		return check
	}
	_ = e.store.Delete(doctorProbeKey)
	check.Status = CheckPass
	check.Message = "Session store writable at " + e.storePath
	return check
}

func checkCallbackAddr(addr string) *HealthCheck {
	check := &HealthCheck{Name: "Callback Address"}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Cannot listen on %s: %s", addr, err)
		check.Fix = "Run: ragworks config set authflow.callback_addr 127.0.0.1:0"
		return check
	}
	ln.Close()
	check.Status = CheckPass
	check.Message = "Browser sign-in can listen on " + addr
	return check
}

func checkSignedIn(e *env) *HealthCheck {
	if id, ok := e.sessions.Identity(); ok {
		return &HealthCheck{Name: "Signed In", Status: CheckPass, Message: "Signed in as " + id}
	}
	return &HealthCheck{
		Name:    "Signed In",
		Status:  CheckWarn,
		Message: "Not signed in",
		Fix:     "Run: ragworks login",
	}
}
