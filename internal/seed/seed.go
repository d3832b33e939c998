// Package seed loads the sample workshop inventory into an empty database.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/toolkeepr/internal/domain"
	"github.com/vbonduro/toolkeepr/internal/service"
)

// Services are the services the sample data is written through, so it passes
// the same validation as user input.
type Services struct {
	Tools      *service.ToolService
	ToolTypes  *service.ToolTypeService
	Categories *service.CategoryService
	Locations  *service.LocationService
	Reports    *service.ReportService
}

// Summary counts what Load created.
type Summary struct {
	Categories int
	Locations  int
	ToolTypes  int
	Tools      int
	Reports    int
}

type toolTypeSeed struct {
	in         service.ToolTypeInput
	properties []service.PropertyInput
}

type reportSeed struct {
	in       service.ReportInput
	schedule service.ScheduleInput
}

var categories = []service.CategoryInput{
	{Name: "Power Tools", Description: "Electric and battery-powered tools for construction and maintenance", Color: "#E53E3E", Icon: "power", IsActive: true},
	{Name: "Hand Tools", Description: "Manual tools for precision work and basic tasks", Color: "#3182CE", Icon: "build", IsActive: true},
	{Name: "Measuring Tools", Description: "Precision instruments for measurement and alignment", Color: "#38A169", Icon: "straighten", IsActive: true},
	{Name: "Safety Equipment", Description: "Personal protective equipment and safety gear", Color: "#D69E2E", Icon: "security", IsActive: true},
	{Name: "Cutting Tools", Description: "Saws, blades, and cutting implements", Color: "#805AD5", Icon: "content_cut", IsActive: true},
	{Name: "Fastening Tools", Description: "Screws, bolts, and fastening equipment", Color: "#DD6B20", Icon: "construction", IsActive: true},
	{Name: "Cleaning Tools", Description: "Maintenance and cleaning equipment", Color: "#0BC5EA", Icon: "cleaning_services", IsActive: false},
}

var locations = []service.LocationInput{
	{
		Name: "Tool Room A", Description: "Main tool storage room with climate control", Type: domain.LocationRoom,
		Address: "Building 1, Ground Floor", Capacity: 100, IsActive: true,
		Coordinates:       &domain.Coordinates{Lat: 40.7128, Lng: -74.0060},
		ResponsiblePerson: "John Smith", ContactInfo: "ext. 1234", AccessLevel: domain.AccessRestricted,
		Features: []string{"Climate Control", "Security Camera", "24/7 Access"},
	},
	{
		Name: "Workshop B", Description: "Large workshop area for heavy equipment", Type: domain.LocationRoom,
		Address: "Building 2, First Floor", Capacity: 50, IsActive: true,
		Coordinates:       &domain.Coordinates{Lat: 40.7130, Lng: -74.0062},
		ResponsiblePerson: "Sarah Johnson", ContactInfo: "ext. 2456", AccessLevel: domain.AccessPublic,
		Features: []string{"Heavy Duty Racks", "Power Outlets", "Ventilation"},
	},
	{
		Name: "Mobile Unit 1", Description: "Service vehicle with portable tool storage", Type: domain.LocationVehicle,
		Capacity: 25, IsActive: true,
		ResponsiblePerson: "Mike Wilson", ContactInfo: "555-0123", AccessLevel: domain.AccessRestricted,
		Features: []string{"GPS Tracking", "Secure Lock", "Weather Resistant"},
	},
	{
		Name: "Warehouse C", Description: "Large storage facility for bulk equipment", Type: domain.LocationWarehouse,
		Address: "Industrial District, Sector 3", Capacity: 200, IsActive: true,
		Coordinates:       &domain.Coordinates{Lat: 40.7135, Lng: -74.0055},
		ResponsiblePerson: "Lisa Brown", ContactInfo: "ext. 3789", AccessLevel: domain.AccessRestricted,
		Features: []string{"Fork Lift Access", "Loading Dock", "High Ceiling"},
	},
	{
		Name: "Safety Station", Description: "Emergency equipment and safety gear storage", Type: domain.LocationZone,
		Address: "Main Building, Emergency Exit A", Capacity: 30, IsActive: true,
		ResponsiblePerson: "David Lee", ContactInfo: "ext. 9999", AccessLevel: domain.AccessPublic,
		Features: []string{"Emergency Access", "First Aid Kit", "Fire Extinguisher"},
	},
	{
		Name: "Archive Storage", Description: "Long-term storage for rarely used equipment", Type: domain.LocationRoom,
		Address: "Basement Level B2", Capacity: 75, IsActive: false,
		ResponsiblePerson: "Admin", ContactInfo: "ext. 0001", AccessLevel: domain.AccessPrivate,
		Features: []string{"Long Term Storage", "Dry Environment", "Inventory Tags"},
	},
}

var toolTypes = []toolTypeSeed{
	{
		in: service.ToolTypeInput{Name: "Drill", Category: "Cutting Tools", Description: "Standard drilling tools", IsActive: true},
		properties: []service.PropertyInput{
			{Name: "diameter", Label: "Diameter", Kind: domain.PropertyNumber, Required: true, Unit: "mm"},
			{Name: "coating", Label: "Coating", Kind: domain.PropertySelect, Options: "Uncoated, TiN, TiAlN, DLC"},
			{Name: "flutes", Label: "Number of Flutes", Kind: domain.PropertyNumber, Required: true},
			{Name: "coolant", Label: "Coolant Compatible", Kind: domain.PropertyBoolean, DefaultValue: "true"},
		},
	},
	{
		in: service.ToolTypeInput{Name: "Endmill", Category: "Cutting Tools", Description: "Milling cutters", IsActive: true},
		properties: []service.PropertyInput{
			{Name: "diameter", Label: "Diameter", Kind: domain.PropertyNumber, Required: true, Unit: "mm"},
			{Name: "length", Label: "Cutting Length", Kind: domain.PropertyNumber, Required: true, Unit: "mm"},
			{Name: "flutes", Label: "Number of Flutes", Kind: domain.PropertySelect, Required: true, Options: "2, 3, 4, 6, 8"},
			{Name: "material", Label: "Material", Kind: domain.PropertySelect, Required: true, Options: "HSS, Carbide, Ceramic"},
			{Name: "corner_radius", Label: "Corner Radius", Kind: domain.PropertyNumber, Unit: "mm"},
		},
	},
	{
		in: service.ToolTypeInput{Name: "Tap", Category: "Cutting Tools", Description: "Threading tools", IsActive: true},
		properties: []service.PropertyInput{
			{Name: "thread_size", Label: "Thread Size", Kind: domain.PropertyText, Required: true},
			{Name: "pitch", Label: "Pitch", Kind: domain.PropertyNumber, Required: true, Unit: "mm"},
			{Name: "thread_type", Label: "Thread Type", Kind: domain.PropertySelect, Required: true, Options: "Metric, UNC, UNF, NPT"},
			{Name: "hand", Label: "Hand", Kind: domain.PropertySelect, Required: true, Options: "Right, Left"},
		},
	},
	{
		in: service.ToolTypeInput{Name: "Spot Drill", Category: "Cutting Tools", Description: "Center drilling tools", IsActive: true},
		properties: []service.PropertyInput{
			{Name: "angle", Label: "Point Angle", Kind: domain.PropertySelect, Required: true, Options: "60°, 90°, 120°, 135°"},
			{Name: "diameter", Label: "Diameter", Kind: domain.PropertyNumber, Required: true, Unit: "mm"},
		},
	},
	{
		in: service.ToolTypeInput{Name: "Caliper", Category: "Measuring Tools", Description: "Precision measurement", IsActive: true},
		properties: []service.PropertyInput{
			{Name: "range", Label: "Measuring Range", Kind: domain.PropertyText, Required: true},
			{Name: "resolution", Label: "Resolution", Kind: domain.PropertyNumber, Required: true, Unit: "mm"},
			{Name: "digital", Label: "Digital Display", Kind: domain.PropertyBoolean, DefaultValue: "false"},
		},
	},
	{
		in: service.ToolTypeInput{Name: "Wrench", Category: "Hand Tools", Description: "Fastening tools", IsActive: true},
		properties: []service.PropertyInput{
			{Name: "size", Label: "Size", Kind: domain.PropertyText, Required: true},
			{Name: "type", Label: "Type", Kind: domain.PropertySelect, Required: true, Options: "Open End, Box End, Combination, Adjustable"},
			{Name: "metric", Label: "Metric", Kind: domain.PropertyBoolean, DefaultValue: "true"},
		},
	},
}

func day(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &t
}

var tools = []service.ToolInput{
	{
		Name: `1/4" Carbide Drill`, Type: "Drill", Description: "High-speed carbide drill bit",
		Location: "Tool Crib A-1", Status: domain.ToolAvailable, IsStandard: true,
		SerialNumber: "CD001234", Manufacturer: "Kennametal", Model: "KC7315",
		PurchaseDate: day("2024-01-15"), LastMaintenance: day("2024-10-01"),
		Properties: map[string]string{"diameter": "6.35", "coating": "TiAlN", "flutes": "2", "coolant": "true"},
	},
	{
		Name: `3/8" Carbide Drill`, Type: "Drill", Description: "Heavy duty carbide drill",
		Location: "Tool Crib A-1", Status: domain.ToolInUse, IsStandard: true,
		SerialNumber: "CD002345", Manufacturer: "Kennametal", Model: "KC7316",
		Properties: map[string]string{"diameter": "9.525", "coating": "TiN", "flutes": "2", "coolant": "true"},
	},
	{
		Name: `1/4" 4-Flute Endmill`, Type: "Endmill", Description: "Carbide end mill for aluminum",
		Location: "Tool Crib B-2", Status: domain.ToolAvailable, IsStandard: true,
		Manufacturer: "Harvey Tool", Model: "HT-4FL",
		Properties: map[string]string{"diameter": "6.35", "length": "19", "flutes": "4", "material": "Carbide", "corner_radius": "0.1"},
	},
	{
		Name: "1/4-20 UNC Tap", Type: "Tap", Description: "Standard threading tap",
		Location: "Tool Crib C-3", Status: domain.ToolAvailable, IsStandard: true,
		Properties: map[string]string{"thread_size": "1/4-20", "pitch": "1.27", "thread_type": "UNC", "hand": "Right"},
	},
	{
		Name: `90° Spot Drill 1/4"`, Type: "Spot Drill", Description: "Center drilling tool",
		Location: "Tool Crib A-1", Status: domain.ToolMaintenance,
		Properties: map[string]string{"angle": "90°", "diameter": "6.35"},
	},
}

var reports = []reportSeed{
	{
		in: service.ReportInput{
			Name: "Daily Inventory Summary", Description: "Daily summary of tool inventory levels and status across all locations",
			Type: domain.ReportInventory, Category: "Operations", Tags: []string{"daily", "inventory", "summary"},
			Formats: []domain.ReportFormat{domain.FormatPDF, domain.FormatExcel}, IsActive: true,
		},
		schedule: service.ScheduleInput{Enabled: true, Frequency: domain.FrequencyDaily, Recipients: []string{"manager@company.com"}},
	},
	{
		in: service.ReportInput{
			Name: "Weekly Checkout Analysis", Description: "Comprehensive analysis of tool checkout patterns and user behavior",
			Type: domain.ReportCheckout, Category: "Analytics", Tags: []string{"weekly", "checkout", "analysis"},
			Formats: []domain.ReportFormat{domain.FormatPDF}, IsActive: true,
		},
		schedule: service.ScheduleInput{Enabled: true, Frequency: domain.FrequencyWeekly, Recipients: []string{"analytics@company.com", "ops@company.com"}},
	},
	{
		in: service.ReportInput{
			Name: "Monthly Maintenance Report", Description: "Monthly maintenance schedule and costs analysis for all equipment",
			Type: domain.ReportMaintenance, Category: "Management", Tags: []string{"monthly", "maintenance", "costs"},
			Formats: []domain.ReportFormat{domain.FormatExcel, domain.FormatCSV}, IsActive: true,
		},
		schedule: service.ScheduleInput{Enabled: true, Frequency: domain.FrequencyMonthly, Recipients: []string{"maintenance@company.com"}},
	},
	{
		in: service.ReportInput{
			Name: "Compliance Audit Trail", Description: "Security and compliance audit trail for tool access and modifications",
			Type: domain.ReportCompliance, Category: "Compliance", Tags: []string{"audit", "compliance", "security"},
			Formats: []domain.ReportFormat{domain.FormatPDF, domain.FormatJSON}, IsActive: true,
		},
	},
	{
		in: service.ReportInput{
			Name: "Usage Trends Dashboard", Description: "Advanced analytics on tool usage patterns and trend predictions",
			Type: domain.ReportUsage, Category: "Analytics", Tags: []string{"trends", "usage", "analytics"},
			Formats: []domain.ReportFormat{domain.FormatPDF}, IsActive: true,
		},
	},
	{
		in: service.ReportInput{
			Name: "Financial Cost Analysis", Description: "Quarterly financial analysis of tool costs, ROI, and budget planning",
			Type: domain.ReportFinancial, Category: "Finance", Tags: []string{"financial", "costs", "ROI"},
			Formats: []domain.ReportFormat{domain.FormatExcel}, IsActive: false,
		},
		schedule: service.ScheduleInput{Enabled: true, Frequency: domain.FrequencyQuarterly, Recipients: []string{"finance@company.com"}},
	},
}

// Load writes the sample inventory. It does nothing and returns false when
// the database already holds tools.
func Load(ctx context.Context, svc Services, logger *slog.Logger) (*Summary, bool, error) {
	existing, err := svc.Tools.List(ctx, service.ToolFilter{})
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		logger.Info("seed skipped, inventory not empty", "tools", len(existing))
		return &Summary{}, false, nil
	}

	sum := &Summary{}
	for _, in := range categories {
		if _, err := svc.Categories.Create(ctx, in); err != nil {
			return sum, false, fmt.Errorf("seed category %q: %w", in.Name, err)
		}
		sum.Categories++
	}
	for _, in := range locations {
		if _, err := svc.Locations.Create(ctx, in); err != nil {
			return sum, false, fmt.Errorf("seed location %q: %w", in.Name, err)
		}
		sum.Locations++
	}
	for _, ts := range toolTypes {
		tt, err := svc.ToolTypes.Create(ctx, ts.in)
		if err != nil {
			return sum, false, fmt.Errorf("seed tool type %q: %w", ts.in.Name, err)
		}
		for _, p := range ts.properties {
			if _, err := svc.ToolTypes.AddProperty(ctx, tt.ID, p); err != nil {
				return sum, false, fmt.Errorf("seed property %s.%s: %w", ts.in.Name, p.Name, err)
			}
		}
		sum.ToolTypes++
	}
	for _, in := range tools {
		if _, err := svc.Tools.Create(ctx, in); err != nil {
			return sum, false, fmt.Errorf("seed tool %q: %w", in.Name, err)
		}
		sum.Tools++
	}
	for _, rs := range reports {
		r, err := svc.Reports.Create(ctx, rs.in)
		if err != nil {
			return sum, false, fmt.Errorf("seed report %q: %w", rs.in.Name, err)
		}
		if rs.schedule.Enabled {
			if _, err := svc.Reports.SaveSchedule(ctx, r.ID, rs.schedule); err != nil {
				return sum, false, fmt.Errorf("seed schedule %q: %w", rs.in.Name, err)
			}
		}
		sum.Reports++
	}

	logger.Info("sample inventory loaded",
		"categories", sum.Categories, "locations", sum.Locations,
		"tool_types", sum.ToolTypes, "tools", sum.Tools, "reports", sum.Reports)
	return sum, true, nil
}
