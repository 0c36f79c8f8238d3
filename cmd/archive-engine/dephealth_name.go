package main

import (
	"os"
	"regexp"

	"github.com/bigkaa/docarchive/internal/config"
)

var (
	// <owner>-<pod-template-hash>-<suffix> для подов Deployment
	deploymentPod = regexp.MustCompile(`^(.+)-[a-z0-9]{6,10}-[a-z0-9]{5}$`)
	// <owner>-<ordinal> для подов StatefulSet
	statefulSetPod = regexp.MustCompile(`^(.+)-[0-9]+$`)
)

// dephealthName возвращает имя вершины для topologymetrics:
// DEPHEALTH_NAME, затем владелец пода по hostname, затем DA_SERVICE_ID.
func dephealthName(cfg *config.Config) string {
	if cfg.DephealthName != "" {
		return cfg.DephealthName
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return parseOwnerName(host)
	}
	return cfg.ServiceID
}

// parseOwnerName извлекает имя владельца пода (Deployment, StatefulSet) из hostname.
// Если hostname не похож на имя пода, возвращается как есть.
func parseOwnerName(hostname string) string {
	if m := deploymentPod.FindStringSubmatch(hostname); m != nil {
		return m[1]
	}
	if m := statefulSetPod.FindStringSubmatch(hostname); m != nil {
		return m[1]
	}
	return hostname
}
