// Package dissector runs protocol dissectors over packets.
//
// A Dissector declares the layer ids it analyzes (its hints) and creates
// one Worker per goroutine. The Engine wraps each packet in a root layer
// named after the link type, runs every worker hinted at that layer, then
// recurses into the child layers the workers added:
//
//	reg := dissector.NewRegistry(tokens)
//	reg.Register(eth)
//	reg.Register(ipv4)
//
//	eng := dissector.New(tokens, reg, dissector.Config{Workers: 4})
//	frame, err := eng.Dissect(ctx, 0, tokens.Literal("[eth]"), data)
//
// Decode errors from workers are recorded on the Frame. Dissection of the
// packet continues with the next worker unless Config.StopOnError is set.
//
// DissectAll runs a pool of sessions, each owning its own Context and
// workers, and returns frames in packet order.
package dissector
