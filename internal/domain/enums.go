package domain

type ToolStatus string

const (
	ToolAvailable   ToolStatus = "available"
	ToolInUse       ToolStatus = "in-use"
	ToolMaintenance ToolStatus = "maintenance"
	ToolRetired     ToolStatus = "retired"
)

var ToolStatuses = []ToolStatus{ToolAvailable, ToolInUse, ToolMaintenance, ToolRetired}

func (s ToolStatus) Valid() bool {
	for _, v := range ToolStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label is the display form used in tables ("In Use").
func (s ToolStatus) Label() string {
	switch s {
	case ToolAvailable:
		return "Available"
	case ToolInUse:
		return "In Use"
	case ToolMaintenance:
		return "Maintenance"
	case ToolRetired:
		return "Retired"
	default:
		return string(s)
	}
}

type PropertyKind string

const (
	PropertyText    PropertyKind = "text"
	PropertyNumber  PropertyKind = "number"
	PropertyDate    PropertyKind = "date"
	PropertyBoolean PropertyKind = "boolean"
	PropertySelect  PropertyKind = "select"
)

var PropertyKinds = []PropertyKind{PropertyText, PropertyNumber, PropertyDate, PropertyBoolean, PropertySelect}

func (k PropertyKind) Valid() bool {
	for _, v := range PropertyKinds {
		if k == v {
			return true
		}
	}
	return false
}

type LocationType string

const (
	LocationRoom      LocationType = "room"
	LocationBuilding  LocationType = "building"
	LocationFloor     LocationType = "floor"
	LocationZone      LocationType = "zone"
	LocationWarehouse LocationType = "warehouse"
	LocationVehicle   LocationType = "vehicle"
)

var LocationTypes = []LocationType{
	LocationRoom, LocationBuilding, LocationFloor, LocationZone, LocationWarehouse, LocationVehicle,
}

func (t LocationType) Valid() bool {
	for _, v := range LocationTypes {
		if t == v {
			return true
		}
	}
	return false
}

type AccessLevel string

const (
	AccessPublic     AccessLevel = "public"
	AccessRestricted AccessLevel = "restricted"
	AccessPrivate    AccessLevel = "private"
)

func (a AccessLevel) Valid() bool {
	return a == AccessPublic || a == AccessRestricted || a == AccessPrivate
}

type CheckoutStatus string

const (
	CheckoutOpen              CheckoutStatus = "checked-out"
	CheckoutOverdue           CheckoutStatus = "overdue"
	CheckoutReturned          CheckoutStatus = "returned"
	CheckoutDamaged           CheckoutStatus = "damaged"
	CheckoutMaintenanceNeeded CheckoutStatus = "maintenance-needed"
)

type ReportType string

const (
	ReportInventory   ReportType = "inventory"
	ReportCheckout    ReportType = "checkout"
	ReportUsage       ReportType = "usage"
	ReportMaintenance ReportType = "maintenance"
	ReportCompliance  ReportType = "compliance"
	ReportAnalytics   ReportType = "analytics"
	ReportFinancial   ReportType = "financial"
	ReportAudit       ReportType = "audit"
)

var ReportTypes = []ReportType{
	ReportInventory, ReportCheckout, ReportUsage, ReportMaintenance,
	ReportCompliance, ReportAnalytics, ReportFinancial, ReportAudit,
}

func (t ReportType) Valid() bool {
	for _, v := range ReportTypes {
		if t == v {
			return true
		}
	}
	return false
}

var ReportCategories = []string{"Operations", "Management", "Finance", "Compliance", "Analytics", "Custom"}

type ReportFormat string

const (
	FormatPDF   ReportFormat = "pdf"
	FormatExcel ReportFormat = "excel"
	FormatCSV   ReportFormat = "csv"
	FormatJSON  ReportFormat = "json"
)

func (f ReportFormat) Valid() bool {
	return f == FormatPDF || f == FormatExcel || f == FormatCSV || f == FormatJSON
}

type ScheduleFrequency string

const (
	FrequencyDaily     ScheduleFrequency = "daily"
	FrequencyWeekly    ScheduleFrequency = "weekly"
	FrequencyMonthly   ScheduleFrequency = "monthly"
	FrequencyQuarterly ScheduleFrequency = "quarterly"
	FrequencyYearly    ScheduleFrequency = "yearly"
)

func (f ScheduleFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// CronSpec maps a frequency onto a cron schedule that fires at midnight.
func (f ScheduleFrequency) CronSpec() string {
	switch f {
	case FrequencyDaily:
		return "@daily"
	case FrequencyWeekly:
		return "@weekly"
	case FrequencyMonthly:
		return "@monthly"
	case FrequencyQuarterly:
		return "0 0 1 */3 *"
	case FrequencyYearly:
		return "@yearly"
	default:
		return ""
	}
}

type ActivityKind string

const (
	ActivityCheckout    ActivityKind = "checkout"
	ActivityCheckin     ActivityKind = "checkin"
	ActivityMaintenance ActivityKind = "maintenance"
	ActivityUpdate      ActivityKind = "update"
	ActivityCreated     ActivityKind = "created"
	ActivityGenerated   ActivityKind = "generated"
	ActivityScheduled   ActivityKind = "scheduled"
)
