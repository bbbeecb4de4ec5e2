//go:build !windows

package platform

func broadcastEnvironmentChange() {}
