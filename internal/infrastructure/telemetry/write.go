package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteParcelStatus records a parcel status transition.
//
// The write is non-blocking; data is batched and sent asynchronously.
func (c *Client) WriteParcelStatus(trackingID, status string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"parcel_status",
		map[string]string{
			"tracking_id": trackingID,
			"status":      status,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDriverLocation records a driver position sample.
func (c *Client) WriteDriverLocation(driverID string, lat, lng float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"driver_location",
		map[string]string{
			"driver_id": driverID,
		},
		map[string]interface{}{
			"lat": lat,
			"lng": lng,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectionGauge records the number of live dashboard connections.
func (c *Client) WriteConnectionGauge(connections int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"live_connections",
		nil,
		map[string]interface{}{
			"count": connections,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
