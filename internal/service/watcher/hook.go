package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
)

// Environment passed to the alert hook.
const (
	EnvAlertID        = "SOS_ALERT_ID"
	EnvAlertReporter  = "SOS_ALERT_REPORTER"
	EnvAlertLocation  = "SOS_ALERT_LOCATION"
	EnvAlertLatitude  = "SOS_ALERT_LAT"
	EnvAlertLongitude = "SOS_ALERT_LON"
)

// errEmptyHook is returned when the hook command is blank.
var errEmptyHook = errors.New("hook command is empty")

// ParseHook splits a hook command line on whitespace. An empty line disables the hook.
func ParseHook(line string) []string {
	return strings.Fields(line)
}

// runHook executes command once for alert and waits for it to finish.
// Alert details are passed as SOS_ALERT_* environment variables; the latitude
// and longitude variables are omitted when the location is unknown.
func runHook(ctx context.Context, command []string, alert *domain.Alert) error {
	if len(command) == 0 {
		return errEmptyHook
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...) //nolint:gosec // The command comes from the operator.
	cmd.Env = append(os.Environ(), hookEnv(alert)...)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("run hook %q: %w: %s", command[0], err, strings.TrimSpace(string(output)))
	}

	return nil
}

func hookEnv(alert *domain.Alert) []string {
	env := []string{
		EnvAlertID + "=" + alert.ID,
		EnvAlertReporter + "=" + alert.Reporter.String(),
		EnvAlertLocation + "=" + alert.LocationText(),
	}

	if alert.Location != nil {
		env = append(env,
			EnvAlertLatitude+"="+strconv.FormatFloat(alert.Location.Latitude, 'f', -1, 64),
			EnvAlertLongitude+"="+strconv.FormatFloat(alert.Location.Longitude, 'f', -1, 64),
		)
	}

	return env
}
