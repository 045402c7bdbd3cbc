package ops

import "time"

// Operation categories.
const (
	CategoryUpdates = "Update Operations"
	CategoryDisk    = "Disk / Filesystem"
	CategoryCleanup = "Cleanup Operations"
	CategorySystem  = "System Operations"
	CategoryReports = "Reports & Analysis"
)

// catalog is the full operation whitelist. A missing Name is derived by
// title-casing the id; entries set one only where the derived form gets
// an acronym or word order wrong. Expected durations reflect observed
// worst cases: quick checks get 5 minutes, package managers get room
// for large downloads, OS updates get half an hour.
var catalog = []Definition{
	{
		ID:                "macos-check",
		Name:              "Check macOS Updates",
		Description:       "Check for available macOS system updates",
		Category:          CategoryUpdates,
		Args:              []string{"--list-macos-updates"},
		RequiresElevation: true,
		Safety:            SafetyReportOnly,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "macos-install",
		Name:              "Install macOS Updates",
		Description:       "Install available macOS system updates",
		Category:          CategoryUpdates,
		Args:              []string{"--install-macos-updates", "--assume-yes"},
		RequiresElevation: true,
		Safety:            SafetyDestructive,
		ExpectedDuration:  30 * time.Minute,
	},
	{
		ID:                "brew-update",
		Description:       "Update Homebrew packages",
		Category:          CategoryUpdates,
		Args:              []string{"--brew", "--assume-yes"},
		RequiresElevation: true,
		Safety:            SafetyGuarded,
		ExpectedDuration:  15 * time.Minute,
	},
	{
		ID:                "brew-cleanup",
		Description:       "Remove old versions and link packages",
		Category:          CategoryCleanup,
		Args:              []string{"--brew-cleanup", "--assume-yes"},
		RequiresElevation: true,
		Safety:            SafetyGuarded,
		ExpectedDuration:  10 * time.Minute,
	},
	{
		ID:                "mas-update",
		Name:              "Update App Store Apps",
		Description:       "Update Mac App Store applications",
		Category:          CategoryUpdates,
		Args:              []string{"--mas", "--assume-yes"},
		RequiresElevation: true,
		Safety:            SafetyGuarded,
		ExpectedDuration:  20 * time.Minute,
	},
	{
		ID:                "disk-verify",
		Description:       "Verify disk health and integrity",
		Category:          CategoryDisk,
		Args:              []string{"--verify-disk"},
		RequiresElevation: true,
		Safety:            SafetyReportOnly,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "disk-repair",
		Description:       "Repair disk errors if found",
		Category:          CategoryDisk,
		Args:              []string{"--repair-disk", "--assume-yes"},
		RequiresElevation: true,
		Safety:            SafetyDestructive,
		ExpectedDuration:  10 * time.Minute,
	},
	{
		ID:                "smart-check",
		Name:              "Check SMART Status",
		Description:       "Check disk SMART health status",
		Category:          CategoryDisk,
		Args:              []string{"--smart"},
		RequiresElevation: true,
		Safety:            SafetyReportOnly,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "trim-logs",
		Description:       "Remove user logs older than 30 days",
		Category:          CategoryCleanup,
		Args:              []string{"--trim-logs", "30", "--assume-yes"},
		RequiresElevation: true,
		Safety:            SafetyGuarded,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "trim-caches",
		Description:       "Remove user caches older than 30 days",
		Category:          CategoryCleanup,
		Args:              []string{"--trim-caches", "30", "--assume-yes"},
		RequiresElevation: true,
		Safety:            SafetyGuarded,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "thin-tm",
		Name:              "Thin Time Machine Snapshots",
		Description:       "Remove old Time Machine local snapshots",
		Category:          CategoryCleanup,
		Args:              []string{"--thin-tm-snapshots", "--assume-yes"},
		RequiresElevation: true,
		Safety:            SafetyDestructive,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "spotlight-status",
		Description:       "Check Spotlight indexing status",
		Category:          CategorySystem,
		Args:              []string{"--spotlight-status"},
		RequiresElevation: true,
		Safety:            SafetyReportOnly,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "spotlight-reindex",
		Description:       "Rebuild Spotlight search index",
		Category:          CategorySystem,
		Args:              []string{"--spotlight-reindex", "--assume-yes"},
		RequiresElevation: true,
		Safety:            SafetyDestructive,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "dns-flush",
		Name:              "Flush DNS Cache",
		Description:       "Clear DNS resolver cache",
		Category:          CategorySystem,
		Args:              []string{"--flush-dns", "--assume-yes"},
		RequiresElevation: true,
		Safety:            SafetyGuarded,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "periodic",
		Name:              "Run Periodic Maintenance",
		Description:       "Run periodic maintenance scripts (daily/weekly/monthly)",
		Category:          CategorySystem,
		Args:              []string{"--periodic", "--assume-yes"},
		RequiresElevation: true,
		Safety:            SafetyGuarded,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "space-report",
		Description:       "Generate detailed disk space usage report",
		Category:          CategoryReports,
		Args:              []string{"--space-report"},
		RequiresElevation: true,
		Safety:            SafetyReportOnly,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "browser-cache",
		Name:              "Clear Browser Caches",
		Description:       "Clear Safari and Chrome browser caches",
		Category:          CategoryCleanup,
		Args:              []string{"--browser-cache", "--assume-yes"},
		RequiresElevation: false,
		Safety:            SafetyGuarded,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "dev-cache",
		Name:              "Clear Developer Caches",
		Description:       "Clear Xcode DerivedData and build caches",
		Category:          CategoryCleanup,
		Args:              []string{"--dev-cache", "--assume-yes"},
		RequiresElevation: false,
		Safety:            SafetyGuarded,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "dev-tools-cache",
		Name:              "Clear Dev Tools Caches",
		Description:       "Clear npm, pip, Go, Cargo, and Composer package caches",
		Category:          CategoryCleanup,
		Args:              []string{"--dev-tools-cache", "--assume-yes"},
		RequiresElevation: false,
		Safety:            SafetyGuarded,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "mail-optimize",
		Name:              "Optimize Mail Database",
		Description:       "Rebuild the mail client envelope index",
		Category:          CategorySystem,
		Args:              []string{"--mail-optimize", "--assume-yes"},
		RequiresElevation: false,
		Safety:            SafetyGuarded,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "messages-cache",
		Name:              "Clear Messages Caches",
		Description:       "Remove message preview and cache files, keeping chat history",
		Category:          CategoryCleanup,
		Args:              []string{"--messages-cache", "--assume-yes"},
		RequiresElevation: false,
		Safety:            SafetyGuarded,
		ExpectedDuration:  5 * time.Minute,
	},
	{
		ID:                "wallpaper-aerials",
		Name:              "Remove Aerial Wallpaper Videos",
		Description:       "Delete downloaded aerial wallpaper videos",
		Category:          CategoryCleanup,
		Args:              []string{"--wallpaper-aerials", "--assume-yes"},
		RequiresElevation: false,
		Safety:            SafetyGuarded,
		ExpectedDuration:  10 * time.Minute,
	},
}
