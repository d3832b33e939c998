package domain

type UserProfile struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar,omitempty"`
	Timezone   string `json:"timezone"`
	Language   string `json:"language"`
	DateFormat string `json:"dateFormat"`
	TimeFormat string `json:"timeFormat"`
}

type NotificationSettings struct {
	EmailNotifications bool `json:"emailNotifications"`
	PushNotifications  bool `json:"pushNotifications"`
	ReportAlerts       bool `json:"reportAlerts"`
	SystemUpdates      bool `json:"systemUpdates"`
	WeeklyDigest       bool `json:"weeklyDigest"`
	TaskReminders      bool `json:"taskReminders"`
	MaintenanceAlerts  bool `json:"maintenanceAlerts"`
}

type SecuritySettings struct {
	TwoFactorAuth  bool     `json:"twoFactorAuth"`
	SessionTimeout int      `json:"sessionTimeout"`
	PasswordExpiry int      `json:"passwordExpiry"`
	LoginAlerts    bool     `json:"loginAlerts"`
	IPWhitelist    []string `json:"ipWhitelist"`
	AllowedDevices []string `json:"allowedDevices"`
}

type AppearanceSettings struct {
	Theme             string `json:"theme"`
	PrimaryColor      string `json:"primaryColor"`
	AccentColor       string `json:"accentColor"`
	FontSize          string `json:"fontSize"`
	CompactMode       bool   `json:"compactMode"`
	AnimationsEnabled bool   `json:"animationsEnabled"`
	HighContrast      bool   `json:"highContrast"`
}

type BackupSettings struct {
	AutoBackup      bool   `json:"autoBackup"`
	BackupFrequency string `json:"backupFrequency"`
	BackupLocation  string `json:"backupLocation"`
	RetentionPeriod int    `json:"retentionPeriod"`
	EncryptBackups  bool   `json:"encryptBackups"`
}

// SettingsBundle is the "settings" object of an export or backup file.
type SettingsBundle struct {
	Notifications NotificationSettings `json:"notifications"`
	Security      SecuritySettings     `json:"security"`
	Appearance    AppearanceSettings   `json:"appearance"`
	Backup        BackupSettings       `json:"backup"`
}

type Settings struct {
	Profile UserProfile
	SettingsBundle
}

func DefaultProfile() UserProfile {
	return UserProfile{
		FirstName:  "John",
		LastName:   "Doe",
		Email:      "john.doe@example.com",
		Timezone:   "UTC-5",
		Language:   "en",
		DateFormat: "MM/dd/yyyy",
		TimeFormat: "12h",
	}
}

func DefaultAppearance() AppearanceSettings {
	return AppearanceSettings{
		Theme:             "light",
		PrimaryColor:      "#1976d2",
		AccentColor:       "#ff4081",
		FontSize:          "medium",
		AnimationsEnabled: true,
	}
}

func DefaultSettings() Settings {
	return Settings{
		Profile: DefaultProfile(),
		SettingsBundle: SettingsBundle{
			Notifications: NotificationSettings{
				EmailNotifications: true,
				PushNotifications:  true,
				ReportAlerts:       true,
				WeeklyDigest:       true,
				TaskReminders:      true,
			},
			Security: SecuritySettings{
				SessionTimeout: 30,
				PasswordExpiry: 90,
				LoginAlerts:    true,
				IPWhitelist:    []string{},
				AllowedDevices: []string{},
			},
			Appearance: DefaultAppearance(),
			Backup: BackupSettings{
				AutoBackup:      true,
				BackupFrequency: "weekly",
				BackupLocation:  "cloud",
				RetentionPeriod: 30,
				EncryptBackups:  true,
			},
		},
	}
}

var (
	Timezones = []string{
		"UTC-12", "UTC-11", "UTC-10", "UTC-9", "UTC-8", "UTC-7", "UTC-6", "UTC-5",
		"UTC", "UTC+1", "UTC+2",
	}
	Languages   = []string{"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja"}
	DateFormats = []string{"MM/dd/yyyy", "dd/MM/yyyy", "yyyy-MM-dd", "dd MMM yyyy", "MMM dd, yyyy"}
	TimeFormats = []string{"12h", "24h"}
	Themes      = []string{"light", "dark", "auto"}
	FontSizes   = []string{"small", "medium", "large"}
)
