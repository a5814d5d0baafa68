package mcpserver

// RecordConventions describes the entity tags, id formats, statuses and
// legal transitions that MCP consumers should follow when reading or
// mutating procurement records.
const RecordConventions = `# SpendGuard Record Conventions

## Entity type tags

| Tag | Record | Id format |
|-----|--------|-----------|
| requisition | Purchase requisition | REQ-<year>-<seq> (e.g. REQ-2026-0001) |
| purchase_order | Purchase order | PO-<year>-<seq> |
| invoice | Supplier invoice | INV-<year>-<seq> |
| supplier | Supplier | SUP-<seq> (e.g. SUP-001) |
| contract | Supplier contract | CTR-<year>-<seq> |
| supply_chain_flow | Shipment / flow | FLOW-<seq> |

Ids are assigned by the server on creation; never invent them.

## Statuses and transitions

Transitions are named actions; applying one from a wrong status is refused.

- requisition: draft -> (submit) -> pending -> (approve|reject) ->
  approved|rejected; approved -> (convert) -> converted (creates a draft
  purchase order); draft|pending -> (cancel) -> cancelled.
- purchase_order: draft -> (send) -> sent -> (acknowledge) -> acknowledged;
  sent|acknowledged -> (receive) -> received; draft|sent -> (cancel) ->
  cancelled.
- invoice: pending -> (approve) -> approved -> (pay) -> paid;
  pending -> (dispute) -> disputed -> (approve) -> approved;
  pending|disputed -> (cancel) -> cancelled. Paying a non-approved invoice
  is always refused.
- supplier: active <-> (deactivate/activate) inactive;
  active -> (suspend) -> suspended -> (activate) -> active.
- contract: draft -> (activate) -> active -> (expire|terminate) ->
  expired|terminated; draft -> (cancel) -> cancelled.
- supply_chain_flow: planned -> (dispatch) -> in_transit -> (deliver) ->
  delivered; in_transit -> (delay) -> delayed -> (resume) -> in_transit;
  delayed -> (deliver) -> delivered.

reject, dispute, suspend, terminate and delay accept an optional reason,
which is recorded on the record. convert accepts an optional supplier_id.

## Relationships

Records reference each other through typed graph edges; both endpoints are
soft references and may dangle after deletions. Conventional edge tags:
derived_from (order -> requisition), billing_for (invoice -> order),
supplied_by (order/contract -> supplier), governed_by (order -> contract),
fulfills (flow -> order).
`
