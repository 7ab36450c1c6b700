package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/glacian/engine/core"
)

/**
 * @brief A descriptor pool sized from per-type ratios of its set count.
 */
type DescriptorAllocator struct {
	Pool DescriptorPool
}

func NewDescriptorAllocator(dev Device, maxSets uint32, ratios []PoolSizeRatio) (*DescriptorAllocator, error) {
	pool, err := dev.CreateDescriptorPool(maxSets, ratios)
	if err != nil {
		err = errors.Wrap(err, "failed to create descriptor pool")
		core.LogError(err.Error())
		return nil, err
	}
	return &DescriptorAllocator{Pool: pool}, nil
}

func (da *DescriptorAllocator) Allocate(dev Device, layout DescriptorSetLayout) (DescriptorSet, error) {
	set, err := dev.AllocateDescriptorSet(da.Pool, layout)
	if err != nil {
		err = errors.Wrap(err, "failed to allocate descriptor set")
		core.LogError(err.Error())
		return 0, err
	}
	return set, nil
}

// Destroy frees the pool and with it every set allocated from it.
func (da *DescriptorAllocator) Destroy(dev Device) {
	if da.Pool != 0 {
		dev.DestroyDescriptorPool(da.Pool)
		da.Pool = 0
	}
}

/**
 * @brief The draw image descriptor: one STORAGE_IMAGE binding visible to compute.
 * The set is allocated once; a resize only rewrites the binding.
 */
type DescriptorState struct {
	allocator *DescriptorAllocator
	Layout    DescriptorSetLayout
	Set       DescriptorSet
}

func NewDescriptorState(dev Device, drawImage *AllocatedImage) (*DescriptorState, error) {
	da, err := NewDescriptorAllocator(dev, DescriptorPoolMaxSets, []PoolSizeRatio{
		{Type: vk.DescriptorTypeStorageImage, Ratio: 1},
	})
	if err != nil {
		return nil, err
	}
	ds := &DescriptorState{allocator: da}

	ds.Layout, err = dev.CreateDescriptorSetLayout([]DescriptorBinding{{
		Binding: 0,
		Type:    vk.DescriptorTypeStorageImage,
		Count:   1,
		Stages:  vk.ShaderStageFlags(vk.ShaderStageComputeBit),
	}})
	if err != nil {
		ds.Destroy(dev)
		err = errors.Wrap(err, "failed to create draw image descriptor layout")
		core.LogError(err.Error())
		return nil, err
	}
	if ds.Set, err = da.Allocate(dev, ds.Layout); err != nil {
		ds.Destroy(dev)
		return nil, err
	}
	ds.WriteDrawImage(dev, drawImage)
	return ds, nil
}

// WriteDrawImage points binding 0 at the image, which is sampled in GENERAL layout.
func (ds *DescriptorState) WriteDrawImage(dev Device, drawImage *AllocatedImage) {
	dev.UpdateStorageImage(ds.Set, 0, drawImage.View, vk.ImageLayoutGeneral)
}

func (ds *DescriptorState) Destroy(dev Device) {
	if ds == nil {
		return
	}
	if ds.allocator != nil {
		ds.allocator.Destroy(dev)
		ds.allocator = nil
	}
	ds.Set = 0
	if ds.Layout != 0 {
		dev.DestroyDescriptorSetLayout(ds.Layout)
		ds.Layout = 0
	}
}
