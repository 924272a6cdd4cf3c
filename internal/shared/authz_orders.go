package shared

// Order lifecycle permissions declared for role checks.
const (
	PermCatalogView   = "catalog.product.view"
	PermCatalogEdit   = "catalog.product.edit"
	PermCatalogImport = "catalog.product.import"
	PermCatalogPrice  = "catalog.product.price"

	PermCartUse = "sales.cart.use"

	PermCustomerView   = "sales.customer.view"
	PermCustomerCreate = "sales.customer.create"

	PermOrderView   = "sales.order.view"
	PermOrderCreate = "sales.order.create"
	PermOrderStatus = "sales.order.status"

	PermProformaView   = "sales.proforma.view"
	PermProformaCreate = "sales.proforma.create"
	PermProformaStatus = "sales.proforma.status"

	PermPaymentView   = "finance.payment.view"
	PermPaymentRecord = "finance.payment.record"

	PermShipmentView   = "warehouse.shipment.view"
	PermShipmentRecord = "warehouse.shipment.record"

	PermReturnCreate  = "sales.return.create"
	PermReturnApprove = "sales.return.approve"

	PermReportView = "reports.view"
)

// SalesScopes lists permissions granted to sales staff.
func SalesScopes() []string {
	return []string{
		PermCatalogView,
		PermCartUse,
		PermCustomerView,
		PermCustomerCreate,
		PermOrderView,
		PermOrderCreate,
		PermProformaView,
		PermProformaCreate,
		PermPaymentView,
		PermShipmentView,
		PermReturnCreate,
	}
}

// AccountsScopes lists permissions granted to accounts staff.
func AccountsScopes() []string {
	return []string{
		PermCatalogView,
		PermCatalogPrice,
		PermCartUse,
		PermCustomerView,
		PermOrderView,
		PermOrderStatus,
		PermProformaView,
		PermProformaStatus,
		PermPaymentView,
		PermPaymentRecord,
		PermShipmentView,
		PermReturnApprove,
		PermReportView,
	}
}

// WarehouseScopes lists permissions granted to warehouse staff.
func WarehouseScopes() []string {
	return []string{
		PermCatalogView,
		PermOrderView,
		PermOrderStatus,
		PermShipmentView,
		PermShipmentRecord,
	}
}
