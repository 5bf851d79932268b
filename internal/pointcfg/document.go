package pointcfg

import "fmt"

// Dialect names one of the two on-disk configuration shapes.
type Dialect string

const (
	DialectNative  Dialect = "native"
	DialectGateway Dialect = "gateway"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case DialectNative, DialectGateway:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("unsupported configuration format %q", s)
}

// Document is the tagged variant over both dialects. Exactly one branch is
// set; the discriminator is fixed by the Validator before any field access.
type Document struct {
	Dialect Dialect          `json:"-"`
	Native  *NativeDocument  `json:"-"`
	Gateway *GatewayDocument `json:"-"`
}

// NativeDocument is the system's own export shape: the controller and its
// points verbatim, no device-kind translation.
type NativeDocument struct {
	Format     string           `json:"format,omitempty"`
	ExportTime string           `json:"export_time,omitempty"`
	Controller NativeController `json:"controller"`
	Points     []NativePoint    `json:"points"`
}

type NativeController struct {
	Name    string `json:"name"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Timeout int    `json:"timeout,omitempty"`
}

type NativePoint struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	DataType    string   `json:"data_type"`
	Address     int      `json:"address"`
	Len         int      `json:"len,omitempty"`
	UnitID      int      `json:"unit_id,omitempty"`
	Formula     string   `json:"formula,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	MinValue    *float64 `json:"min_value,omitempty"`
	MaxValue    *float64 `json:"max_value,omitempty"`
}

// GatewayDocument is the gateway dialect: one slave block per secondary
// device, points scattered over attributes / timeseries / rpc sections.
type GatewayDocument struct {
	Master     GatewayMaster `json:"master"`
	ExportTime string        `json:"export_time,omitempty"`
	Format     string        `json:"format,omitempty"`
}

type GatewayMaster struct {
	Slaves []GatewaySlave `json:"slaves"`
}

type GatewaySlave struct {
	Method     string        `json:"method,omitempty"`
	Type       string        `json:"type,omitempty"`
	Host       string        `json:"host"`
	Port       int           `json:"port"`
	Timeout    int           `json:"timeout,omitempty"`
	Retries    int           `json:"retries,omitempty"`
	PollPeriod int           `json:"pollPeriod,omitempty"`
	UnitID     int           `json:"unitId"`
	DeviceName string        `json:"deviceName"`
	DeviceType string        `json:"deviceType,omitempty"`
	Attributes []GatewayItem `json:"attributes"`
	Timeseries []GatewayItem `json:"timeseries"`
	RPC        []GatewayItem `json:"rpc"`
}

type GatewayItem struct {
	Tag          string `json:"tag"`
	Type         string `json:"type"`
	FunctionCode int    `json:"functionCode"`
	Address      int    `json:"address"`
	ObjectsCount int    `json:"objectsCount,omitempty"`
}

// writeTagPrefix marks rpc entries generated for a point's write path.
const writeTagPrefix = "set_"
