package app

import (
	"github.com/vk/tilegraph/internal/registry"
	"github.com/vk/tilegraph/modules/calculator"
	"github.com/vk/tilegraph/modules/constant"
	"github.com/vk/tilegraph/modules/function"
	"github.com/vk/tilegraph/modules/terrain"
)

// coreModules is the definitive list of all node kinds that are compiled
// into the tilegraph binary.
var coreModules = []registry.Module{
	&constant.Module{},
	&calculator.Module{},
	&terrain.Module{},
	&function.Module{},
}
