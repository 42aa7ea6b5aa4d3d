// Package fulfillment contains the Fulfillment bounded context: the hub's view of
// orders and shipments, the remote shipping service's entities, and the pure
// mapping rules between the two.
//
// Key concepts:
//   - HubOrder / HubShipment: inbound value objects delivered by hub webhooks
//   - RemoteOrder / RemoteOrderItem / RemoteShipment: typed remote entities
//   - Session: port for a per-request unit of work against the remote service
//   - LookupResolver: strategy for carrier/service name resolution
//   - WatermarkTracker: strategy for the incremental shipment poll window
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package fulfillment
