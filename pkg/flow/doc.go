// Package flow aggregates packet records into traffic graphs.
//
// Two groupings are supported, selected by [Mode]:
//
//   - [ModeHost]: one node per IP address
//   - [ModePort]: one node per "ip:port" endpoint
//
// [Aggregate] walks the records once, in order. Every record adds its frame
// length to the volume of both endpoints and contributes at most one
// directed [Link] per ordered (source, target) pair. When an endpoint is
// seen with more than one transport or application protocol its label is
// upgraded to a sentinel ([MixedL4], [MixedL7]); the upgrade never reverts.
//
// # Malformed Records
//
// Records are expected to be pre-filtered by the capture reader. Any record
// that still lacks an endpoint address, carries a negative frame length, or
// (port mode only) has no transport ports is skipped and counted in
// [Model.Skipped]. The policy is the same for every call.
//
// # Immutability
//
// A [Model] is a snapshot. Consumers such as the layout engine copy its
// nodes and links into their own working sets and never write back.
//
//	models := flow.BuildModels(capture.Records)
//	fmt.Println(len(models.Host.Nodes), "hosts,", len(models.Port.Nodes), "endpoints")
package flow
