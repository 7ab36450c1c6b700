package vulkan

import (
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/core"
)

const (
	validationLayerName        = "VK_LAYER_KHRONOS_validation"
	portabilitySubsetExtension = "VK_KHR_portability_subset"
)

// NewVulkanContext loads the loader through GLFW, creates the instance, picks
// a physical device and creates a logical device with one graphics queue that
// can present to window.
func NewVulkanContext(window Window, appName string, cfg EngineConfig) (*VulkanContext, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, errors.Wrap(core.ErrInstanceCreation, "GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to initialize vk"), core.ErrInstanceCreation)
	}

	vc := newVulkanContext(window)
	if err := vc.createInstance(appName, cfg.Debug); err != nil {
		return nil, errors.Mark(err, core.ErrInstanceCreation)
	}

	surface, err := vc.createWindowSurface()
	if err != nil {
		vc.DestroyInstance()
		return nil, errors.Mark(err, core.ErrInstanceCreation)
	}
	vc.probeSurface = surface

	if err := vc.createDevice(); err != nil {
		vc.DestroyInstance()
		if errors.Is(err, core.ErrNoSuitableDevice) {
			return nil, err
		}
		return nil, errors.Mark(err, core.ErrDeviceCreation)
	}
	return vc, nil
}

func (vc *VulkanContext) createInstance(appName string, debug bool) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 3, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Glacian"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := vc.window.RequiredInstanceExtensions()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		if hasInstanceLayer(validationLayerName) {
			layers = append(layers, validationLayerName)
		} else {
			core.LogWarn("validation layer %s is not installed, continuing without it", validationLayerName)
		}
	}
	core.LogDebug("instance extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if err := vkError(vk.CreateInstance(&createInfo, vc.Allocator, &vc.Instance), "vkCreateInstance"); err != nil {
		return err
	}
	if err := vk.InitInstance(vc.Instance); err != nil {
		return errors.Wrap(err, "failed to load instance functions")
	}
	core.LogInfo("Vulkan Instance created.")

	if debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vkError(vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, vc.Allocator, &dbg), "vkCreateDebugReportCallbackEXT"); err != nil {
			// the instance is usable without the callback
			core.LogWarn("debug report callback unavailable: %v", err)
		} else {
			vc.debugMessenger = dbg
		}
	}
	return nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success || count == 0 {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		if vk.ToString(layers[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (vc *VulkanContext) enumeratePhysicalDevices() ([]vk.PhysicalDevice, error) {
	var count uint32
	if err := vkError(vk.EnumeratePhysicalDevices(vc.Instance, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := vkError(vk.EnumeratePhysicalDevices(vc.Instance, &count, devices), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	return devices[:count], nil
}

// describePhysicalDevice gathers what SelectPhysicalDevice needs to judge a candidate.
func (vc *VulkanContext) describePhysicalDevice(device vk.PhysicalDevice) PhysicalDeviceInfo {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()

	info := PhysicalDeviceInfo{
		Name:       vk.ToString(properties.DeviceName[:]),
		Type:       properties.DeviceType,
		APIVersion: properties.ApiVersion,
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, families)

	surface := vc.surfaces.get(uint64(vc.probeSurface))
	for i := uint32(0); i < familyCount; i++ {
		families[i].Deref()
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, i, surface, &supportsPresent); res != vk.Success {
			supportsPresent = vk.False
		}
		info.QueueFamilies = append(info.QueueFamilies, QueueFamilyInfo{
			Index:    i,
			Graphics: families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
			Compute:  families[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0,
			Present:  supportsPresent == vk.True,
		})
	}
	return info
}

func deviceHasExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	extensions := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, extensions); res != vk.Success {
		return false
	}
	for i := range extensions {
		extensions[i].Deref()
		if vk.ToString(extensions[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func (vc *VulkanContext) createDevice() error {
	devices, err := vc.enumeratePhysicalDevices()
	if err != nil {
		return err
	}
	candidates := make([]PhysicalDeviceInfo, len(devices))
	for i, d := range devices {
		candidates[i] = vc.describePhysicalDevice(d)
	}
	index, family, err := SelectPhysicalDevice(candidates)
	if err != nil {
		return err
	}
	vc.PhysicalDevice = devices[index]
	vc.GraphicsQueueIndex = family
	vk.GetPhysicalDeviceProperties(vc.PhysicalDevice, &vc.Properties)
	vc.Properties.Deref()

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if deviceHasExtension(vc.PhysicalDevice, portabilitySubsetExtension) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensionNames = append(extensionNames, portabilitySubsetExtension)
	}

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: family,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	if err := vkError(vk.CreateDevice(vc.PhysicalDevice, &deviceCreateInfo, vc.Allocator, &vc.LogicalDevice), "vkCreateDevice"); err != nil {
		return err
	}
	core.LogInfo("Logical device created.")

	var queue vk.Queue
	vk.GetDeviceQueue(vc.LogicalDevice, family, 0, &queue)
	vc.GraphicsQueue = queue
	vc.locks.SetQueueFamily(family)
	vc.queryMemoryTypes()
	return nil
}

// DestroyDevice waits for the GPU, then releases the cached render passes and
// framebuffers and the logical device. Objects still alive in the tables are
// reported.
func (vc *VulkanContext) DestroyDevice() {
	if vc.LogicalDevice == nil {
		return
	}
	if err := vc.WaitIdle(); err != nil {
		core.LogWarn("wait idle before device destruction: %v", err)
	}
	vc.framebuffers.destroy()
	vc.renderPasses.destroy()

	leaked := map[string]int{
		"fence":          vc.fences.len(),
		"semaphore":      vc.semaphores.len(),
		"command_pool":   vc.commandPools.len(),
		"buffer":         vc.buffers.len(),
		"memory":         vc.memories.len(),
		"pipeline":       vc.pipelines.len(),
		"swapchain":      vc.swapchains.len(),
		"descriptorPool": vc.descriptorPools.len(),
	}
	for kind, n := range leaked {
		if n > 0 {
			core.LogWarn("%d %s object(s) alive at device destruction", n, kind)
		}
	}

	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(vc.LogicalDevice, vc.Allocator)
	vc.LogicalDevice = nil
	vc.GraphicsQueue = nil
	vc.PhysicalDevice = nil
}

// DestroyInstance releases the surfaces still registered, the debug callback
// and the instance. The logical device must already be gone.
func (vc *VulkanContext) DestroyInstance() {
	if vc.Instance == nil {
		return
	}
	for _, id := range vc.surfaces.ids() {
		vc.DestroySurface(Surface(id))
	}
	if vc.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = vk.NullDebugReportCallback
	}
	core.LogInfo("Destroying Vulkan instance...")
	vk.DestroyInstance(vc.Instance, vc.Allocator)
	vc.Instance = nil
}
