// Package sysinfo collects host and runtime metadata for the service
// info endpoints.
package sysinfo

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// ec2MetadataTimeout bounds the instance metadata lookup. Off EC2 the
// link-local address never answers, so the budget has to be tight enough
// not to drag the endpoint down.
const ec2MetadataTimeout = 250 * time.Millisecond

// AppInfo describes the running service.
type AppInfo struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Uptime  float64 `json:"uptime"`
}

// SystemInfo describes the host the service runs on.
type SystemInfo struct {
	Hostname   string  `json:"hostname"`
	Processors int     `json:"processors"`
	Memory     string  `json:"memory"`
	Uptime     float64 `json:"uptime"`
}

// EC2Info is the subset of the EC2 instance identity document the
// service reports.
type EC2Info struct {
	ImageID          string `json:"image_id"`
	InstanceType     string `json:"instance_type"`
	InstanceID       string `json:"instance_id"`
	AvailabilityZone string `json:"availability_zone"`
	Region           string `json:"region"`
}

// Collector gathers the metadata once per request. The zero value is
// usable; StartedAt defaults to process start as seen by the OS.
type Collector struct {
	AppName    string
	AppVersion string
}

// App reports the service name, version and uptime in seconds.
func (c *Collector) App() AppInfo {
	info := AppInfo{Name: c.AppName, Version: c.AppVersion}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if createTime, err := p.CreateTime(); err == nil {
			started := time.UnixMilli(createTime)
			info.Uptime = round3(time.Since(started).Seconds())
		}
	}

	return info
}

// System reports hostname, logical processor count, total memory and
// host uptime. Fields that cannot be read are left at their zero value
// rather than failing the whole endpoint.
func (c *Collector) System() SystemInfo {
	info := SystemInfo{}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.Memory = fmt.Sprintf("%.1f MB", float64(vm.Total)/(1024*1024))
	}

	if uptime, err := host.Uptime(); err == nil {
		info.Uptime = float64(uptime)
	}

	if counts, err := cpu.Counts(true); err == nil {
		info.Processors = counts
	}

	return info
}

// EC2 fetches the instance identity document from the metadata service.
// Returns false when the service is unreachable within the budget, i.e.
// when not running on EC2.
func (c *Collector) EC2(ctx context.Context) (EC2Info, bool) {
	ctx, cancel := context.WithTimeout(ctx, ec2MetadataTimeout)
	defer cancel()

	client := imds.New(imds.Options{})
	doc, err := client.GetInstanceIdentityDocument(ctx, &imds.GetInstanceIdentityDocumentInput{})
	if err != nil {
		return EC2Info{}, false
	}

	return EC2Info{
		ImageID:          doc.ImageID,
		InstanceType:     doc.InstanceType,
		InstanceID:       doc.InstanceID,
		AvailabilityZone: doc.AvailabilityZone,
		Region:           doc.Region,
	}, true
}

func round3(f float64) float64 {
	return float64(int64(f*1000)) / 1000
}
