package azcli

import (
	"time"
)

// Az builds the az invocations used by azsnap.
type Az struct {
	Binary  string
	Timeout time.Duration
}

func (a Az) command(args ...string) Command {
	bin := a.Binary
	if bin == "" {
		bin = "az"
	}
	return Command{
		Path:    bin,
		Args:    args,
		Timeout: a.Timeout,
	}
}

func (a Az) AccountSet(subscription string) Command {
	return a.command("account", "set", "--subscription", subscription)
}

func (a Az) AccountList() Command {
	return a.command("account", "list", "-o", "json")
}

// VMListLinux lists the Linux VMs of the active subscription as [{SubscriptionId, Name}]
// where SubscriptionId holds the full resource id of the VM.
func (a Az) VMListLinux() Command {
	return a.command("vm", "list",
		"--query", "[?storageProfile.osDisk.osType=='Linux'].{SubscriptionId:id, Name:name}",
		"-o", "json",
	)
}

func (a Az) VMShow(resourceID string) Command {
	return a.command("vm", "show",
		"--ids", resourceID,
		"--query", "{resourceGroup:resourceGroup, diskId:storageProfile.osDisk.managedDisk.id}",
		"-o", "json",
	)
}

// SnapshotCreate creates a snapshot of the source disk. tags are in key=value form.
func (a Az) SnapshotCreate(name, resourceGroup, sourceDisk string, tags ...string) Command {
	args := []string{"snapshot", "create",
		"--name", name,
		"--resource-group", resourceGroup,
		"--source", sourceDisk,
	}
	if len(tags) > 0 {
		args = append(args, "--tags")
		args = append(args, tags...)
	}
	args = append(args, "-o", "json")
	return a.command(args...)
}

func (a Az) SnapshotShow(resourceID string) Command {
	return a.command("snapshot", "show",
		"--ids", resourceID,
		"--query", "{name:name, resourceGroup:resourceGroup, timeCreated:timeCreated, diskSizeGb:diskSizeGb, provisioningState:provisioningState}",
		"-o", "json",
	)
}
