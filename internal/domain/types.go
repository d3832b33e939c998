package domain

import "time"

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	IsActive    bool      `json:"isActive"`
	Parent      string    `json:"parentCategory,omitempty"`
	ToolCount   int       `json:"toolCount"`
	CreatedAt   time.Time `json:"createdDate"`
	UpdatedAt   time.Time `json:"lastModified"`
}

type CategoryStats struct {
	TotalCategories  int
	ActiveCategories int
	TotalTools       int
	MostUsedCategory string
	RecentlyAdded    int
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Location struct {
	ID                int64        `json:"-"`
	Code              string       `json:"id"`
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	Type              LocationType `json:"type"`
	Address           string       `json:"address,omitempty"`
	Capacity          int          `json:"capacity"`
	CurrentToolCount  int          `json:"currentToolCount"`
	IsActive          bool         `json:"isActive"`
	Coordinates       *Coordinates `json:"coordinates,omitempty"`
	Parent            string       `json:"parentLocation,omitempty"`
	ResponsiblePerson string       `json:"responsiblePerson,omitempty"`
	ContactInfo       string       `json:"contactInfo,omitempty"`
	AccessLevel       AccessLevel  `json:"accessLevel"`
	QRCode            string       `json:"qrCode,omitempty"`
	Features          []string     `json:"features"`
	CreatedAt         time.Time    `json:"createdDate"`
	UpdatedAt         time.Time    `json:"lastModified"`
}

type LocationStats struct {
	TotalLocations   int
	ActiveLocations  int
	TotalCapacity    int
	OccupancyRate    int
	MostUsedLocation string
	AvailableSpots   int
}

// OccupancyPercent is the share of capacity in use, 0 when capacity is unset.
func (l *Location) OccupancyPercent() float64 {
	if l.Capacity <= 0 {
		return 0
	}
	return float64(l.CurrentToolCount) / float64(l.Capacity) * 100
}

type ToolTypeProperty struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Label        string       `json:"label"`
	Kind         PropertyKind `json:"type"`
	Required     bool         `json:"required"`
	Options      []string     `json:"options,omitempty"`
	Unit         string       `json:"unit,omitempty"`
	DefaultValue string       `json:"defaultValue,omitempty"`
}

type ToolType struct {
	ID          int64              `json:"-"`
	Code        string             `json:"id"`
	Name        string             `json:"name"`
	Category    string             `json:"category"`
	Description string             `json:"description"`
	IsActive    bool               `json:"isActive"`
	Properties  []ToolTypeProperty `json:"properties"`
}

type Tool struct {
	ID              int64             `json:"-"`
	Code            string            `json:"id"`
	Name            string            `json:"name"`
	Type            string            `json:"type"`
	Description     string            `json:"description"`
	Location        string            `json:"location"`
	Status          ToolStatus        `json:"status"`
	IsStandard      bool              `json:"isStandard"`
	SerialNumber    string            `json:"serialNumber,omitempty"`
	Manufacturer    string            `json:"manufacturer,omitempty"`
	Model           string            `json:"model,omitempty"`
	PurchaseDate    *time.Time        `json:"purchaseDate,omitempty"`
	LastMaintenance *time.Time        `json:"lastMaintenance,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Condition       string            `json:"condition,omitempty"`
	CheckedOutBy    string            `json:"checkedOutBy,omitempty"`
	LastCheckedOut  *time.Time        `json:"lastCheckedOut,omitempty"`
	Properties      map[string]string `json:"properties,omitempty"`
	CreatedAt       time.Time         `json:"createdDate"`
	UpdatedAt       time.Time         `json:"lastModified"`
}

type DashboardStats struct {
	TotalTools       int
	StandardTools    int
	AvailableTools   int
	InUseTools       int
	MaintenanceTools int
}

type ToolTypeCount struct {
	Type      string
	Count     int
	Available int
	InUse     int
}

type Checkout struct {
	ID             int64          `json:"id"`
	ToolID         int64          `json:"-"`
	ToolCode       string         `json:"toolId"`
	ToolName       string         `json:"toolName"`
	Category       string         `json:"category,omitempty"`
	Location       string         `json:"location,omitempty"`
	Condition      string         `json:"condition,omitempty"`
	EmployeeName   string         `json:"employeeName"`
	EmployeeID     string         `json:"employeeId"`
	CheckedOutAt   time.Time      `json:"checkOutDate"`
	ExpectedReturn time.Time      `json:"expectedReturnDate"`
	ReturnedAt     *time.Time     `json:"actualReturnDate,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Status         CheckoutStatus `json:"status"`
}

type ReturnRecord struct {
	ID                  int64     `json:"id"`
	CheckoutID          int64     `json:"-"`
	ToolCode            string    `json:"toolId"`
	ToolName            string    `json:"toolName"`
	EmployeeName        string    `json:"employeeName"`
	EmployeeID          string    `json:"employeeId"`
	CheckedOutAt        time.Time `json:"checkOutDate"`
	ReturnedAt          time.Time `json:"returnDate"`
	ReturnCondition     string    `json:"returnCondition"`
	DamageNotes         string    `json:"damageNotes,omitempty"`
	MaintenanceRequired bool      `json:"maintenanceRequired"`
	ReturnedBy          string    `json:"returnedBy"`
	InspectedBy         string    `json:"inspectedBy,omitempty"`
}

type Report struct {
	ID              int64             `json:"-"`
	Code            string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Type            ReportType        `json:"type"`
	Category        string            `json:"category"`
	Tags            []string          `json:"tags"`
	Formats         []ReportFormat    `json:"format"`
	IsActive        bool              `json:"isActive"`
	IsScheduled     bool              `json:"isScheduled"`
	Frequency       ScheduleFrequency `json:"scheduleFrequency,omitempty"`
	Recipients      []string          `json:"recipients,omitempty"`
	CreatedAt       time.Time         `json:"createdDate"`
	LastGeneratedAt *time.Time        `json:"lastGenerated,omitempty"`
}

type ReportRun struct {
	ID          int64
	ReportID    int64
	ReportType  ReportType
	GeneratedAt time.Time
	GeneratedBy string
	RecordCount int
	DurationMS  int64
}

type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Trend string `json:"trend,omitempty"`
}

type ReportSummary struct {
	TotalRecords int       `json:"totalRecords"`
	Filters      []string  `json:"filters"`
	RangeStart   time.Time `json:"rangeStart"`
	RangeEnd     time.Time `json:"rangeEnd"`
	KeyMetrics   []Metric  `json:"keyMetrics"`
}

type ReportResult struct {
	ReportCode    string        `json:"reportId"`
	ReportName    string        `json:"reportName"`
	GeneratedAt   time.Time     `json:"generatedDate"`
	GeneratedBy   string        `json:"generatedBy"`
	Columns       []string      `json:"columns"`
	Rows          [][]string    `json:"data"`
	Summary       ReportSummary `json:"summary"`
	ExecutionTime time.Duration `json:"executionTime"`
	RecordCount   int           `json:"recordCount"`
}

type TypeCount struct {
	Type  string
	Count int
}

type ReportDashboard struct {
	TotalReports          int
	ScheduledReports      int
	ReportsGeneratedToday int
	AverageExecutionTime  time.Duration
	PopularReportTypes    []TypeCount
	RecentActivity        []*Activity
}

type Activity struct {
	ID        int64        `json:"id"`
	Kind      ActivityKind `json:"type"`
	Action    string       `json:"action"`
	Subject   string       `json:"tool"`
	Actor     string       `json:"user"`
	Details   string       `json:"details,omitempty"`
	CreatedAt time.Time    `json:"timestamp"`
}

type Photo struct {
	ID         int64
	LocationID int64
	StorageKey string
	MimeType   string
	UploadedAt time.Time
}
