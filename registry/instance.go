package registry

import (
	"fmt"
	"strconv"
)

// Instance status values understood by the registry.
const (
	StatusUp           = "UP"
	StatusDown         = "DOWN"
	StatusStarting     = "STARTING"
	StatusOutOfService = "OUT_OF_SERVICE"
	StatusUnknown      = "UNKNOWN"
)

// Lease parameters sent at registration. The registry tracks lease
// expiry; this client only renews on the advertised interval.
const (
	// LeaseRenewalIntervalSeconds is the heartbeat cadence.
	LeaseRenewalIntervalSeconds = 30

	// LeaseDurationSeconds is the lease lifetime on the registry side.
	// A lease not renewed within this window is evicted.
	LeaseDurationSeconds = 90
)

// instanceDocument is the registration envelope the registry expects.
type instanceDocument struct {
	Instance instanceInfo `json:"instance"`
}

// instanceInfo is the Eureka-compatible instance descriptor. Field names
// and constants follow the Netflix wire format, including the "$" and
// "@enabled" port object keys and the DataCenterInfo class marker.
type instanceInfo struct {
	InstanceID                    string            `json:"instanceId"`
	HostName                      string            `json:"hostName"`
	App                           string            `json:"app"`
	IPAddr                        string            `json:"ipAddr"`
	Status                        string            `json:"status"`
	OverriddenStatus              string            `json:"overriddenstatus"`
	Port                          portInfo          `json:"port"`
	SecurePort                    portInfo          `json:"securePort"`
	CountryID                     int               `json:"countryId"`
	DataCenterInfo                dataCenterInfo    `json:"dataCenterInfo"`
	LeaseInfo                     leaseInfo         `json:"leaseInfo"`
	Metadata                      map[string]string `json:"metadata"`
	HomePageURL                   string            `json:"homePageUrl"`
	StatusPageURL                 string            `json:"statusPageUrl"`
	HealthCheckURL                string            `json:"healthCheckUrl,omitempty"`
	SecureHealthCheckURL          string            `json:"secureHealthCheckUrl,omitempty"`
	VipAddress                    string            `json:"vipAddress"`
	SecureVipAddress              string            `json:"secureVipAddress"`
	IsCoordinatingDiscoveryServer bool              `json:"isCoordinatingDiscoveryServer"`
	LastUpdatedTimestamp          int64             `json:"lastUpdatedTimestamp"`
	LastDirtyTimestamp            int64             `json:"lastDirtyTimestamp"`
	ActionType                    string            `json:"actionType"`
}

// portInfo is the registry's port object: "$" holds the port number and
// "@enabled" a stringified boolean.
type portInfo struct {
	Port    int    `json:"$"`
	Enabled string `json:"@enabled"`
}

type dataCenterInfo struct {
	Class string `json:"@class"`
	Name  string `json:"name"`
}

type leaseInfo struct {
	RenewalIntervalInSecs int   `json:"renewalIntervalInSecs"`
	DurationInSecs        int   `json:"durationInSecs"`
	RegistrationTimestamp int64 `json:"registrationTimestamp"`
	LastRenewalTimestamp  int64 `json:"lastRenewalTimestamp"`
	EvictionTimestamp     int64 `json:"evictionTimestamp"`
	ServiceUpTimestamp    int64 `json:"serviceUpTimestamp"`
}

// instanceDocument builds the registration document for this client.
// Home and status pages are advertised over plain HTTP; the health check
// URL follows the secure-port flag so the registry probes the scheme the
// instance actually serves.
func (c *Client) instanceDocument() instanceDocument {
	info := instanceInfo{
		InstanceID:       c.instanceID,
		HostName:         c.cfg.InstanceHost,
		App:              c.cfg.AppName,
		IPAddr:           c.ipAddr,
		Status:           StatusUp,
		OverriddenStatus: StatusUnknown,
		Port: portInfo{
			Port:    c.cfg.InstancePort,
			Enabled: strconv.FormatBool(c.cfg.NonSecurePortEnabled),
		},
		SecurePort: portInfo{
			Port:    c.cfg.InstancePort,
			Enabled: strconv.FormatBool(c.cfg.SecurePortEnabled),
		},
		CountryID: 1,
		DataCenterInfo: dataCenterInfo{
			Class: "com.netflix.appinfo.InstanceInfo$DefaultDataCenterInfo",
			Name:  "MyOwn",
		},
		LeaseInfo: leaseInfo{
			RenewalIntervalInSecs: LeaseRenewalIntervalSeconds,
			DurationInSecs:        LeaseDurationSeconds,
		},
		Metadata:         map[string]string{},
		HomePageURL:      fmt.Sprintf("http://%s:%d/", c.cfg.InstanceHost, c.cfg.InstancePort),
		StatusPageURL:    fmt.Sprintf("http://%s:%d/", c.cfg.InstanceHost, c.cfg.InstancePort),
		VipAddress:       c.cfg.AppName,
		SecureVipAddress: c.cfg.AppName,
		ActionType:       "ADDED",
	}

	if c.cfg.SecurePortEnabled {
		info.SecureHealthCheckURL = fmt.Sprintf("https://%s:%d/health", c.cfg.InstanceHost, c.cfg.InstancePort)
	} else {
		info.HealthCheckURL = fmt.Sprintf("http://%s:%d/health", c.cfg.InstanceHost, c.cfg.InstancePort)
	}

	return instanceDocument{Instance: info}
}
