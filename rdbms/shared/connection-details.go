package shared

import (
	"fmt"
	"sort"
	"strings"
)

// ConnectionDetails holds credentials for a logical connection, either a database DSN or S3 settings.
type ConnectionDetails struct {
	Type        string            `json:"type" errorTxt:"connection type" mandatory:"yes" yaml:"type"`
	LogicalName string            `json:"logicalName" errorTxt:"connection logical name" mandatory:"yes" yaml:"logicalName"`
	Data        map[string]string `json:"data" yaml:"data"`
}

// NewDsnConnectionDetails resolves the type of dsn and wraps it in ConnectionDetails.
func NewDsnConnectionDetails(logicalName string, dsn string) (*ConnectionDetails, error) {
	d := DsnConnectionDetails{Dsn: dsn}
	p, err := d.Parse()
	if err != nil {
		return nil, err
	}
	return &ConnectionDetails{
		Type:        p.Type,
		LogicalName: logicalName,
		Data:        d.GetMap(nil),
	}, nil
}

// String redacts passwords and pretty-prints the contents of ConnectionDetails.
func (c ConnectionDetails) String() string {
	x := make([]string, 0, len(c.Data)+1)
	x = append(x, fmt.Sprintf("  type = %v", c.Type))
	if v, ok := c.Data[DefaultDsnConnectionKeyNames.Dsn]; ok { // if there's a DSN...
		x = append(x, fmt.Sprintf("  dsn = %v", DsnConnectionDetails{Dsn: v}))
		return strings.Join(x, "\n")
	}
	// Else there's no DSN, which could be an S3 connection.
	keys := make([]string, 0, len(c.Data))
	for k := range c.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := c.Data[k]
		if strings.Contains(strings.ToLower(k), "secret") || strings.Contains(strings.ToLower(k), "password") {
			v = "xxxxx"
		}
		x = append(x, fmt.Sprintf("  %v = %v", k, v))
	}
	return strings.Join(x, "\n")
}
