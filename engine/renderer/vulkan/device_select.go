package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/core"
)

// MinAPIVersion is the lowest Vulkan version a device must report.
var MinAPIVersion = uint32(vk.MakeVersion(1, 3, 0))

type QueueFamilyInfo struct {
	Index    uint32
	Graphics bool
	Compute  bool
	Present  bool
}

type PhysicalDeviceInfo struct {
	Name          string
	Type          vk.PhysicalDeviceType
	APIVersion    uint32
	QueueFamilies []QueueFamilyInfo
}

// graphicsPresentFamily returns the first family that can both draw and present.
func (info *PhysicalDeviceInfo) graphicsPresentFamily() (uint32, bool) {
	for _, qf := range info.QueueFamilies {
		if qf.Graphics && qf.Present {
			return qf.Index, true
		}
	}
	return 0, false
}

func (info *PhysicalDeviceInfo) meetsRequirements() (uint32, bool) {
	if info.APIVersion < MinAPIVersion {
		core.LogInfo("device '%s' reports Vulkan %d.%d, skipping", info.Name,
			vk.Version.Major(vk.Version(info.APIVersion)), vk.Version.Minor(vk.Version(info.APIVersion)))
		return 0, false
	}
	family, ok := info.graphicsPresentFamily()
	if !ok {
		core.LogInfo("device '%s' has no queue family with graphics and present, skipping", info.Name)
	}
	return family, ok
}

// SelectPhysicalDevice prefers the first discrete GPU meeting the requirements,
// then the first integrated one. It returns the candidate index and the
// graphics queue family to use.
func SelectPhysicalDevice(candidates []PhysicalDeviceInfo) (int, uint32, error) {
	for _, want := range []vk.PhysicalDeviceType{vk.PhysicalDeviceTypeDiscreteGpu, vk.PhysicalDeviceTypeIntegratedGpu} {
		for i := range candidates {
			if candidates[i].Type != want {
				continue
			}
			if family, ok := candidates[i].meetsRequirements(); ok {
				core.LogInfo("Selected device: '%s' (%s), graphics family %d.", candidates[i].Name, deviceTypeString(want), family)
				return i, family, nil
			}
		}
	}
	return -1, 0, errors.Wrapf(core.ErrNoSuitableDevice, "%d candidate(s)", len(candidates))
}

func deviceTypeString(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	}
	return "unknown"
}
