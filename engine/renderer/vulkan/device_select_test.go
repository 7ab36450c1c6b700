package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/core"
)

func TestSelectPhysicalDevice(t *testing.T) {
	v13 := uint32(vk.MakeVersion(1, 3, 0))
	v12 := uint32(vk.MakeVersion(1, 2, 0))
	graphics := []QueueFamilyInfo{{Index: 0, Graphics: true, Compute: true, Present: true}}
	split := []QueueFamilyInfo{
		{Index: 0, Compute: true},
		{Index: 1, Graphics: true},
		{Index: 2, Graphics: true, Present: true},
	}

	tests := []struct {
		name       string
		candidates []PhysicalDeviceInfo
		wantIndex  int
		wantFamily uint32
		wantErr    bool
	}{
		{
			name: "discrete preferred over integrated",
			candidates: []PhysicalDeviceInfo{
				{Name: "igpu", Type: vk.PhysicalDeviceTypeIntegratedGpu, APIVersion: v13, QueueFamilies: graphics},
				{Name: "dgpu", Type: vk.PhysicalDeviceTypeDiscreteGpu, APIVersion: v13, QueueFamilies: split},
			},
			wantIndex:  1,
			wantFamily: 2,
		},
		{
			name: "old discrete falls back to integrated",
			candidates: []PhysicalDeviceInfo{
				{Name: "dgpu", Type: vk.PhysicalDeviceTypeDiscreteGpu, APIVersion: v12, QueueFamilies: graphics},
				{Name: "igpu", Type: vk.PhysicalDeviceTypeIntegratedGpu, APIVersion: v13, QueueFamilies: graphics},
			},
			wantIndex: 1,
		},
		{
			name: "first of two discrete",
			candidates: []PhysicalDeviceInfo{
				{Name: "a", Type: vk.PhysicalDeviceTypeDiscreteGpu, APIVersion: v13, QueueFamilies: graphics},
				{Name: "b", Type: vk.PhysicalDeviceTypeDiscreteGpu, APIVersion: v13, QueueFamilies: graphics},
			},
			wantIndex: 0,
		},
		{
			name: "no present support",
			candidates: []PhysicalDeviceInfo{
				{Name: "dgpu", Type: vk.PhysicalDeviceTypeDiscreteGpu, APIVersion: v13, QueueFamilies: split[:2]},
			},
			wantErr: true,
		},
		{
			name: "cpu only",
			candidates: []PhysicalDeviceInfo{
				{Name: "llvmpipe", Type: vk.PhysicalDeviceTypeCpu, APIVersion: v13, QueueFamilies: graphics},
			},
			wantErr: true,
		},
		{name: "none", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, family, err := SelectPhysicalDevice(tt.candidates)
			if tt.wantErr {
				if !errors.Is(err, core.ErrNoSuitableDevice) {
					t.Fatalf("err = %v, want ErrNoSuitableDevice", err)
				}
				if !core.IsFatal(err) {
					t.Error("no suitable device must be fatal")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if index != tt.wantIndex || family != tt.wantFamily {
				t.Errorf("got device %d family %d, want %d family %d", index, family, tt.wantIndex, tt.wantFamily)
			}
		})
	}
}
