package models

import "time"

// Condition is the physical state of a device.
type Condition string

const (
	ConditionGood     Condition = "bien"
	ConditionDamaged  Condition = "mal estado"
	ConditionInRepair Condition = "en reparacion"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionInRepair:
		return true
	}
	return false
}

// DefaultLocation is the current location assigned when none is provided.
const DefaultLocation = "Sede Arequipa 06 - Socabaya"

// Item is a device issued to a person, keyed by the person's DNI.
// The JSON names are the public wire format.
type Item struct {
	ID                string     `json:"id"`
	Holder            string     `json:"persona"`
	DNI               string     `json:"dni"`
	Device            string     `json:"dispositivo"`
	AssetTag          string     `json:"control_patrimonial"`
	Model             string     `json:"modelo"`
	SerialNumber      string     `json:"numero_serie"`
	IMEI              *string    `json:"imei"`
	TabletCase        bool       `json:"funda_tablet"`
	DataPlan          bool       `json:"plan_datos"`
	PowerTech         bool       `json:"power_tech"`
	Phone             string     `json:"telefono"`
	PersonalEmail     string     `json:"correo_personal"`
	DeliveredAt       time.Time  `json:"fecha_entrega"`
	Condition         Condition  `json:"estado"`
	Stolen            bool       `json:"robado"`
	RepairReason      *string    `json:"motivo_reparacion"`
	Location          string     `json:"ubicacion_actual"`
	ResponsibleParty  string     `json:"responsable_entrega"`
	Notes             *string    `json:"observaciones"`
	EstimatedValue    *float64   `json:"valor_estimado"`
	WarrantyExpiresAt *time.Time `json:"garantia_vence"`
	Vendor            *string    `json:"proveedor"`
	PurchasedAt       *time.Time `json:"fecha_compra"`
	CreatedBy         string     `json:"created_by"`
	UpdatedBy         string     `json:"updated_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewItem is the creation payload. Server-stamped fields are absent so
// that clients cannot set them.
type NewItem struct {
	Holder            string     `json:"persona"`
	DNI               string     `json:"dni"`
	Device            string     `json:"dispositivo"`
	AssetTag          string     `json:"control_patrimonial"`
	Model             string     `json:"modelo"`
	SerialNumber      string     `json:"numero_serie"`
	IMEI              *string    `json:"imei,omitempty"`
	TabletCase        bool       `json:"funda_tablet"`
	DataPlan          bool       `json:"plan_datos"`
	PowerTech         bool       `json:"power_tech"`
	Phone             string     `json:"telefono"`
	PersonalEmail     string     `json:"correo_personal"`
	DeliveredAt       *time.Time `json:"fecha_entrega,omitempty"`
	Condition         Condition  `json:"estado"`
	Stolen            bool       `json:"robado"`
	RepairReason      *string    `json:"motivo_reparacion,omitempty"`
	Location          string     `json:"ubicacion_actual,omitempty"`
	Notes             *string    `json:"observaciones,omitempty"`
	EstimatedValue    *float64   `json:"valor_estimado,omitempty"`
	WarrantyExpiresAt *time.Time `json:"garantia_vence,omitempty"`
	Vendor            *string    `json:"proveedor,omitempty"`
	PurchasedAt       *time.Time `json:"fecha_compra,omitempty"`
}

// ItemUpdate is the allow-list of fields an update may change. The DNI
// and the audit fields are deliberately absent. Nil fields are left as is.
type ItemUpdate struct {
	Holder            *string    `json:"persona,omitempty"`
	Device            *string    `json:"dispositivo,omitempty"`
	AssetTag          *string    `json:"control_patrimonial,omitempty"`
	Model             *string    `json:"modelo,omitempty"`
	SerialNumber      *string    `json:"numero_serie,omitempty"`
	IMEI              *string    `json:"imei,omitempty"`
	TabletCase        *bool      `json:"funda_tablet,omitempty"`
	DataPlan          *bool      `json:"plan_datos,omitempty"`
	PowerTech         *bool      `json:"power_tech,omitempty"`
	Phone             *string    `json:"telefono,omitempty"`
	PersonalEmail     *string    `json:"correo_personal,omitempty"`
	DeliveredAt       *time.Time `json:"fecha_entrega,omitempty"`
	Condition         *Condition `json:"estado,omitempty"`
	Stolen            *bool      `json:"robado,omitempty"`
	RepairReason      *string    `json:"motivo_reparacion,omitempty"`
	Location          *string    `json:"ubicacion_actual,omitempty"`
	Notes             *string    `json:"observaciones,omitempty"`
	EstimatedValue    *float64   `json:"valor_estimado,omitempty"`
	WarrantyExpiresAt *time.Time `json:"garantia_vence,omitempty"`
	Vendor            *string    `json:"proveedor,omitempty"`
	PurchasedAt       *time.Time `json:"fecha_compra,omitempty"`
}

// Fields returns the JSON names of the fields set in u, in declaration order.
func (u ItemUpdate) Fields() []string {
	return u.Apply(&Item{})
}

// Apply copies the set fields of u onto item and returns their JSON names
// in declaration order.
func (u ItemUpdate) Apply(item *Item) []string {
	var fields []string
	setString := func(name string, src *string, dst *string) {
		if src != nil {
			*dst = *src
			fields = append(fields, name)
		}
	}
	setOptString := func(name string, src *string, dst **string) {
		if src != nil {
			v := *src
			*dst = &v
			fields = append(fields, name)
		}
	}
	setBool := func(name string, src *bool, dst *bool) {
		if src != nil {
			*dst = *src
			fields = append(fields, name)
		}
	}
	setOptTime := func(name string, src *time.Time, dst **time.Time) {
		if src != nil {
			v := *src
			*dst = &v
			fields = append(fields, name)
		}
	}

	setString("persona", u.Holder, &item.Holder)
	setString("dispositivo", u.Device, &item.Device)
	setString("control_patrimonial", u.AssetTag, &item.AssetTag)
	setString("modelo", u.Model, &item.Model)
	setString("numero_serie", u.SerialNumber, &item.SerialNumber)
	setOptString("imei", u.IMEI, &item.IMEI)
	setBool("funda_tablet", u.TabletCase, &item.TabletCase)
	setBool("plan_datos", u.DataPlan, &item.DataPlan)
	setBool("power_tech", u.PowerTech, &item.PowerTech)
	setString("telefono", u.Phone, &item.Phone)
	setString("correo_personal", u.PersonalEmail, &item.PersonalEmail)
	if u.DeliveredAt != nil {
		item.DeliveredAt = *u.DeliveredAt
		fields = append(fields, "fecha_entrega")
	}
	if u.Condition != nil {
		item.Condition = *u.Condition
		fields = append(fields, "estado")
	}
	setBool("robado", u.Stolen, &item.Stolen)
	setOptString("motivo_reparacion", u.RepairReason, &item.RepairReason)
	setString("ubicacion_actual", u.Location, &item.Location)
	setOptString("observaciones", u.Notes, &item.Notes)
	if u.EstimatedValue != nil {
		v := *u.EstimatedValue
		item.EstimatedValue = &v
		fields = append(fields, "valor_estimado")
	}
	setOptTime("garantia_vence", u.WarrantyExpiresAt, &item.WarrantyExpiresAt)
	setOptString("proveedor", u.Vendor, &item.Vendor)
	setOptTime("fecha_compra", u.PurchasedAt, &item.PurchasedAt)
	return fields
}
