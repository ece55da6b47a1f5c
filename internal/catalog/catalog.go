package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Area and subarea labels used as callback values and stored on issues.
const (
	AreaWorkshop  = "Цех"
	AreaTransport = "Транспорт"

	SubareaProduction = "Производство"
	SubareaPacking    = "Фасовка"
	SubareaTech       = "Техническое оборудование"
)

// Special cases the wizard must branch on: one machine carries a nested
// group-cut sub-menu, and one packing line has no component layer at all.
const (
	GroupCutComponent = "группорезка"
	GroupCutMachine   = "Станок №8"
	TerminalLine      = "2.5"

	RestrictedRole = "технолог"
	DefaultRole    = "инженер"
)

// Catalog is the static reference data behind the report menus. The built-in
// tables mirror the shop floor; a YAML file may replace them wholesale.
type Catalog struct {
	Roles                 []string            `yaml:"roles"`
	ProductionMachines    []string            `yaml:"production_machines"`
	ProductionComponents  map[string][]string `yaml:"production_components"`
	GroupCutSubcomponents []string            `yaml:"group_cut_subcomponents"`
	PackingLines          []string            `yaml:"packing_lines"`
	PackingComponents     []string            `yaml:"packing_components"`
	TechEquipment         []string            `yaml:"tech_equipment"`
	TransportTypes        []string            `yaml:"transport_types"`
}

// Default returns the built-in reference tables.
func Default() *Catalog {
	return &Catalog{
		Roles: []string{"инженер", "электрик КИПиА", "мастер цеха", "слесарь", "механик", "технолог"},
		ProductionMachines: []string{
			"Станок №1", "Станок №12", "Станок №8", "Станок №9", "Станок №11", "Станок №11А",
		},
		ProductionComponents: map[string][]string{
			"Станок №1": {"ванна", "просеиватель", "пружина", "дозатор", "замес",
				"питатель", "пресс", "нож", "трабатта", "лоткоподача", "штабелер", "другое"},
			"Станок №12": {"ванна", "просеиватель", "пружина", "дозатор", "замес",
				"питатель", "пресс", "нож", "трабатта", "лоткоподача", "штабелер", "другое"},
			"Станок №8": {"ванна", "просеиватель", "пружина", "дозатор", "замес",
				"питатель", "пресс", "нож", "трабатта", "группорезка", "другое"},
			"Станок №9": {"ванна", "просеиватель", "пружина", "дозатор", "замес",
				"питатель", "пресс", "нож", "трабатта"},
			"Станок №11": {"ванна", "просеиватель", "бункер замеса", "раскатка",
				"калибратор", "нож", "лоткоподача", "другое"},
			"Станок №11А": {"ванна", "просеиватель", "бункер замеса", "раскатка",
				"калибратор", "нож", "лоткоподача", "штабелер", "другое"},
		},
		GroupCutSubcomponents: []string{"лоткоподача", "другое"},
		PackingLines:          []string{"0.3Н", "0.3Б", "0.8", "2.5", "Элита"},
		PackingComponents: []string{"бункер", "конвейер. лента", "корзина", "принтер", "фото-метка",
			"формовка пакета", "встряхиватель", "замена трубы", "другое"},
		TechEquipment:  []string{"компрессор", "котельная", "приточ. вентиляция", "другое"},
		TransportTypes: []string{"Грузовой транспорт", "Погрузчики"},
	}
}

// ComponentsFor returns the component list for a production machine.
// Unknown machines yield an empty list.
func (c *Catalog) ComponentsFor(machine string) []string {
	return c.ProductionComponents[machine]
}

// ValidRole reports whether role is one of the known role values.
func (c *Catalog) ValidRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Validate ensures the reference tables are usable by the wizard.
func (c *Catalog) Validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf("catalog.roles is required")
	}
	if len(c.ProductionMachines) == 0 {
		return fmt.Errorf("catalog.production_machines is required")
	}
	for _, m := range c.ProductionMachines {
		if m == "" {
			return fmt.Errorf("catalog.production_machines contains an empty name")
		}
		if len(c.ProductionComponents[m]) == 0 {
			return fmt.Errorf("machine %s has no components", m)
		}
	}
	for m, comps := range c.ProductionComponents {
		for _, comp := range comps {
			if comp == "" {
				return fmt.Errorf("machine %s has an empty component name", m)
			}
		}
	}
	if hasComponent(c.ProductionComponents[GroupCutMachine], GroupCutComponent) && len(c.GroupCutSubcomponents) == 0 {
		return fmt.Errorf("machine %s offers %s but no subcomponents are defined", GroupCutMachine, GroupCutComponent)
	}
	if len(c.PackingLines) == 0 {
		return fmt.Errorf("catalog.packing_lines is required")
	}
	if len(c.PackingComponents) == 0 {
		return fmt.Errorf("catalog.packing_components is required")
	}
	if len(c.TechEquipment) == 0 {
		return fmt.Errorf("catalog.tech_equipment is required")
	}
	if len(c.TransportTypes) == 0 {
		return fmt.Errorf("catalog.transport_types is required")
	}
	return nil
}

func hasComponent(comps []string, name string) bool {
	for _, c := range comps {
		if c == name {
			return true
		}
	}
	return false
}

// FromYAML parses and validates a catalog from raw YAML bytes.
func FromYAML(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FromFile reads a YAML catalog from the given path.
func FromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Load returns the catalog to use: the override file if path is non-empty,
// the built-in tables otherwise.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return FromFile(path)
}
