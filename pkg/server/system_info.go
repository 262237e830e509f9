package server

import (
	"bufio"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"visitd/pkg/log"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

// SystemInfo is the system introspection payload for GET /api/system.
type SystemInfo struct {
	Version       string       `json:"version"`
	Uptime        string       `json:"uptime"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	LoadAverages  LoadAverages `json:"load_averages"`
	Memory        MemoryInfo   `json:"memory"`
}

// LoadAverages represents system load information.
type LoadAverages struct {
	Load1  float64 `json:"load_1"`
	Load5  float64 `json:"load_5"`
	Load15 float64 `json:"load_15"`
}

// MemoryInfo represents memory usage, with human-readable sizes alongside
// the raw byte counts.
type MemoryInfo struct {
	Total          uint64 `json:"total"`
	Used           uint64 `json:"used"`
	Available      uint64 `json:"available"`
	TotalHuman     string `json:"total_human"`
	UsedHuman      string `json:"used_human"`
	AvailableHuman string `json:"available_human"`
}

// handleSystemInfo serves GET /api/system.
func (s *Server) handleSystemInfo(c echo.Context) error {
	info, err := s.collectSystemInfo()
	if err != nil {
		log.Error().Err(err).Msg("Failed to collect system information")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to collect system information",
		})
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) collectSystemInfo() (*SystemInfo, error) {
	uptime, err := readUptime()
	if err != nil {
		return nil, err
	}

	loadAvg, err := readLoadAverages()
	if err != nil {
		return nil, err
	}

	memory, err := readMemoryInfo()
	if err != nil {
		return nil, err
	}

	return &SystemInfo{
		Version:       s.version,
		Uptime:        formatUptime(uptime),
		UptimeSeconds: uptime,
		LoadAverages:  *loadAvg,
		Memory:        *memory,
	}, nil
}

// readUptime reads system uptime from /proc/uptime.
func readUptime() (int64, error) {
	data, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(string(data))
	if len(fields) < 1 {
		return 0, err
	}

	uptimeFloat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, err
	}
	return int64(uptimeFloat), nil
}

// readLoadAverages reads load averages from /proc/loadavg.
func readLoadAverages() (*LoadAverages, error) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return nil, err
	}

	const minLoadFields = 3
	fields := strings.Fields(string(data))
	if len(fields) < minLoadFields {
		return nil, err
	}

	var loads [minLoadFields]float64
	for i := range loads {
		loads[i], err = strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
	}

	return &LoadAverages{Load1: loads[0], Load5: loads[1], Load15: loads[2]}, nil
}

// readMemoryInfo reads memory information from /proc/meminfo.
func readMemoryInfo() (*MemoryInfo, error) {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close /proc/meminfo file")
		}
	}()

	const kbToBytes = 1024
	values := map[string]uint64{}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		values[strings.TrimSuffix(fields[0], ":")] = value * kbToBytes
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	total := values["MemTotal"]
	// Use MemAvailable if present (more accurate), otherwise calculate
	available := values["MemAvailable"]
	if available == 0 {
		available = values["MemFree"] + values["Buffers"] + values["Cached"]
	}
	used := total - available

	return &MemoryInfo{
		Total:          total,
		Used:           used,
		Available:      available,
		TotalHuman:     humanize.IBytes(total),
		UsedHuman:      humanize.IBytes(used),
		AvailableHuman: humanize.IBytes(available),
	}, nil
}

// formatUptime converts seconds to human-readable format.
func formatUptime(seconds int64) string {
	duration := time.Duration(seconds) * time.Second
	const hoursInDay = 24
	const minutesInHour = 60
	days := int(duration.Hours()) / hoursInDay
	hours := int(duration.Hours()) % hoursInDay
	minutes := int(duration.Minutes()) % minutesInHour

	switch {
	case days > 0:
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
	case hours > 0:
		return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
	default:
		return strconv.Itoa(minutes) + "m"
	}
}
