// Package dissect is a packet dissection runtime.
//
// Protocol decoders describe header layouts declaratively and build a
// tree of layers for every packet. Attribute values are decoded lazily
// from the layer bytes each time they are read.
//
// # Architecture Overview
//
//	dissect/
//	├── token/       Interned identifiers for layers, attributes and tags
//	├── variant/     Dynamic values produced by attribute casts
//	├── attr/        Attribute classes, casts and declarative layouts
//	├── layer/       Layers, dispatch tables, stacks and layer types
//	├── dissector/   Registry, hint dispatch and the packet engine
//	├── protocols/   Ethernet, IPv4 and UDP dissectors
//	├── resource/    Generational handle tables
//	├── abi/         Host primitives exported to plugins
//	├── plugin/      Dissectors compiled to WebAssembly
//	├── config/      TOML configuration
//	└── errors/      Structured error types for debugging
//
// # Quick Start
//
// Decode a packet with the built-in dissectors:
//
//	tokens := token.NewTable()
//	reg := dissector.NewRegistry(tokens)
//	if _, err := protocols.Register(reg, tokens); err != nil {
//	    log.Fatal(err)
//	}
//
//	eng := dissector.New(tokens, reg, dissector.Config{Workers: 4})
//	frame, err := eng.Dissect(ctx, 0, tokens.Literal(protocols.EthLink), packet)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, l := range frame.Layers() {
//	    fmt.Println(l)
//	}
//
// # Layers
//
// Every layer built from a layer.Type carries a first header whose id is
// the layer id itself and whose value is always true, so "ipv4" can be
// tested like any other attribute. Dissectors may anchor statically laid
// out attribute groups at runtime offsets with AddAttr.
//
// # Thread Safety
//
// Token tables, registries and engines are safe for concurrent use.
// Layers and stacks belong to the goroutine dissecting their packet.
// Workers are created per goroutine and never shared.
package dissect
