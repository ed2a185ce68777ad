package purifier

import (
	"math"
	"strconv"
	"time"

	"github.com/airlink-home/airlink-core/internal/gateway"
)

// Normalization constants for the purifier wire format.
const (
	// filterFullLifeDays is the filter life a fresh filter reports.
	filterFullLifeDays = 180

	// filterChangeThresholdPercent is the active-filter life below which
	// the change indicator is raised.
	filterChangeThresholdPercent = 10

	// sleepFanPercent is the presentation value for the sleep fan step.
	sleepFanPercent = 10

	// fallbackFanPercent is used when the device is on but the fan step
	// is absent or unrecognised.
	fallbackFanPercent = 50

	// fanSteps is the number of manual fan steps.
	fanSteps = 3
)

// Normalize folds a raw device payload into the previous snapshot and
// returns a complete new one. It is pure and total: every payload,
// however sparse, produces a valid snapshot. A field the payload omits
// keeps its previous value; it is never blanked.
func Normalize(raw *gateway.RawStatus, prev StatusSnapshot, now time.Time) StatusSnapshot {
	snap := prev
	snap.Source = SourceLive
	snap.UpdatedAt = now

	if raw.Power != nil {
		if *raw.Power == "1" {
			snap.Power = PowerOn
		} else {
			snap.Power = PowerOff
		}
	} else if snap.Power == "" {
		snap.Power = PowerOff
	}

	if raw.Mode != nil {
		switch *raw.Mode {
		case "A":
			snap.Mode = ModeAuto
		case "M":
			snap.Mode = ModeManual
		case "S":
			snap.Mode = ModeSleep
		default:
			snap.Mode = ModeUnknown
		}
	} else if snap.Mode == "" {
		snap.Mode = ModeAuto
	}

	snap.FanPercent = fanPercent(snap.Power, snap.Mode, raw.FanSpeed)

	if raw.FilterMain != nil {
		snap.FilterMainPercent = filterPercent(*raw.FilterMain)
	}
	if raw.FilterWick != nil {
		snap.FilterWickPercent = filterPercent(*raw.FilterWick)
	}
	snap.FilterChangeRequired = snap.FilterMainPercent < filterChangeThresholdPercent

	if raw.AirQuality != nil {
		v := *raw.AirQuality
		snap.AirQuality = &v
	}
	if raw.Temperature != nil {
		snap.Temperature = *raw.Temperature
	}
	if raw.Humidity != nil {
		snap.Humidity = *raw.Humidity
	}

	return snap
}

// SafeDefault is the neutral snapshot exposed when a device cannot be
// reached: powered off, idle fan, healthy filters, room-neutral climate,
// unknown air quality. Live values are restored from the device's last
// known snapshot on recovery, never from this one.
func SafeDefault(now time.Time) StatusSnapshot {
	return StatusSnapshot{
		Power:             PowerOff,
		Mode:              ModeAuto,
		FanPercent:        0,
		FilterMainPercent: 100,
		FilterWickPercent: 100,
		Temperature:       20.0,
		Humidity:          50.0,
		Source:            SourceSafeDefault,
		UpdatedAt:         now,
	}
}

// fanPercent maps the raw fan step to a percentage. The device is
// authoritative about power: an off device always presents 0. Sleep mode
// pins the lowest speed no matter what step the device reports.
func fanPercent(power PowerState, mode Mode, om *string) int {
	if power != PowerOn {
		return 0
	}
	if mode == ModeSleep {
		return sleepFanPercent
	}

	if om != nil {
		if *om == "s" {
			return sleepFanPercent
		}
		if n, err := strconv.Atoi(*om); err == nil {
			pct := int(math.Round(float64(n) / fanSteps * 100))
			if pct < 0 {
				pct = 0
			}
			if pct > 100 {
				pct = 100
			}
			return pct
		}
		return fallbackFanPercent
	}

	return fallbackFanPercent
}

// filterPercent converts remaining filter life in days to a 0-100
// percentage of the full lifespan.
func filterPercent(days int) int {
	pct := int(math.Round(float64(days) / filterFullLifeDays * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
