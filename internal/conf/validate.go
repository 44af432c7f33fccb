// conf/validate.go settings validation
package conf

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateSettings checks the loaded settings for configuration mistakes that
// would only surface later at runtime.
func ValidateSettings(settings *Settings) error {
	var problems []string

	if err := validatePort(settings.Server.Port); err != nil {
		problems = append(problems, err.Error())
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		problems = append(problems, "no state store enabled, enable output.sqlite or output.mysql")
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		problems = append(problems, "output.sqlite.path must be set when SQLite is enabled")
	}
	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Database == "" {
			problems = append(problems, "output.mysql.database must be set when MySQL is enabled")
		}
		if err := validatePort(settings.Output.MySQL.Port); err != nil {
			problems = append(problems, fmt.Sprintf("output.mysql.port: %v", err))
		}
	}

	if settings.WoRMS.Enabled {
		if settings.WoRMS.Endpoint == "" {
			problems = append(problems, "worms.endpoint must be set when WoRMS is enabled")
		}
		if settings.WoRMS.BatchSize <= 0 {
			problems = append(problems, "worms.batchsize must be positive")
		}
		if settings.WoRMS.TimeoutSec <= 0 {
			problems = append(problems, "worms.timeoutsec must be positive")
		}
	}

	if settings.Analysis.CoordinatePrecision < 0 {
		problems = append(problems, "analysis.coordinateprecision cannot be negative")
	}
	if settings.Analysis.PreviewRows < 0 {
		problems = append(problems, "analysis.previewrows cannot be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// validatePort checks that a port string is a number in the valid TCP range.
func validatePort(port string) error {
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port %q is not a number", port)
	}
	if p < 1 || p > 65535 {
		return fmt.Errorf("port %d is out of range", p)
	}
	return nil
}
