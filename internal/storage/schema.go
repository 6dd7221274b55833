// Schema specs live here so the shared repository code and every backend
// package can consume them without circular imports. Backends translate
// the logical column types into their own DDL.

package storage

// ColType is a backend-neutral column type.
type ColType int

const (
	TypeText ColType = iota
	TypeInt
	TypeBigInt
	TypeMoney // fixed-precision decimal, NUMERIC(10,2)
	TypeDate  // calendar day, no time component
	TypeFlag  // 0/1 boolean
)

// TableSpec describes one warehouse table. Every table has a
// storage-generated integer identity named "id" as its surrogate key.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec

	// Uniques are the natural-key (and business-key) uniqueness
	// constraints. The pipeline relies on these failing loudly if two
	// concurrent runs race on the same natural key.
	Uniques [][]string
}

// ColumnSpec describes one column.
type ColumnSpec struct {
	Name     string
	Type     ColType
	Len      int // for TypeText; 0 means backend default
	Nullable bool

	// References names a table whose "id" the column points at.
	References string
}

// Tables returns the full warehouse schema: six dimension tables, the
// fact table, and the OLTP staging table. Order matters for creation:
// referenced tables come first.
func Tables() []TableSpec {
	return []TableSpec{
		{
			Name: "dim_region",
			Columns: []ColumnSpec{
				{Name: "region_name", Type: TypeText, Len: 100},
				{Name: "city", Type: TypeText, Len: 100},
			},
			Uniques: [][]string{{"region_name", "city"}},
		},
		{
			Name: "dim_manager",
			Columns: []ColumnSpec{
				{Name: "name", Type: TypeText, Len: 100},
			},
			Uniques: [][]string{{"name"}},
		},
		{
			Name: "dim_supplier",
			Columns: []ColumnSpec{
				{Name: "name", Type: TypeText, Len: 100},
				{Name: "country", Type: TypeText, Len: 100, Nullable: true},
			},
			Uniques: [][]string{{"name"}},
		},
		{
			Name: "dim_category",
			Columns: []ColumnSpec{
				{Name: "name", Type: TypeText, Len: 100},
			},
			Uniques: [][]string{{"name"}},
		},
		{
			Name: "dim_product",
			Columns: []ColumnSpec{
				{Name: "business_id", Type: TypeBigInt},
				{Name: "name", Type: TypeText, Len: 255},
				{Name: "brand", Type: TypeText, Len: 100, Nullable: true},
				{Name: "category_id", Type: TypeBigInt, References: "dim_category"},
			},
			Uniques: [][]string{{"business_id"}},
		},
		{
			Name: "dim_date",
			Columns: []ColumnSpec{
				{Name: "date", Type: TypeDate},
				{Name: "year", Type: TypeInt},
				{Name: "quarter", Type: TypeInt},
				{Name: "month", Type: TypeInt},
				{Name: "day", Type: TypeInt},
				{Name: "month_name", Type: TypeText, Len: 20},
				{Name: "day_name", Type: TypeText, Len: 20},
			},
			Uniques: [][]string{{"date"}},
		},
		{
			Name: "fact_sales",
			Columns: []ColumnSpec{
				{Name: "sale_id", Type: TypeBigInt},
				{Name: "date_id", Type: TypeBigInt, References: "dim_date"},
				{Name: "product_id", Type: TypeBigInt, References: "dim_product"},
				{Name: "manager_id", Type: TypeBigInt, References: "dim_manager"},
				{Name: "supplier_id", Type: TypeBigInt, References: "dim_supplier"},
				{Name: "region_id", Type: TypeBigInt, References: "dim_region"},
				{Name: "quantity", Type: TypeInt},
				{Name: "unit_price", Type: TypeMoney},
				{Name: "discount", Type: TypeMoney},
				{Name: "revenue", Type: TypeMoney},
				{Name: "payment_type", Type: TypeText, Len: 50, Nullable: true},
				{Name: "sales_channel", Type: TypeText, Len: 50, Nullable: true},
			},
			Uniques: [][]string{{"sale_id"}},
		},
		{
			Name: "oltp_sales",
			Columns: []ColumnSpec{
				{Name: "sale_id", Type: TypeBigInt},
				{Name: "sale_datetime", Type: TypeText, Len: 50},
				{Name: "region_name", Type: TypeText, Len: 100},
				{Name: "city", Type: TypeText, Len: 100},
				{Name: "manager", Type: TypeText, Len: 100},
				{Name: "product_id", Type: TypeBigInt},
				{Name: "product_name", Type: TypeText, Len: 255},
				{Name: "brand", Type: TypeText, Len: 100, Nullable: true},
				{Name: "category", Type: TypeText, Len: 100},
				{Name: "supplier_name", Type: TypeText, Len: 100},
				{Name: "supplier_country", Type: TypeText, Len: 100, Nullable: true},
				{Name: "quantity", Type: TypeInt},
				{Name: "unit_price", Type: TypeMoney},
				{Name: "discount", Type: TypeMoney},
				{Name: "revenue", Type: TypeMoney, Nullable: true},
				{Name: "payment_type", Type: TypeText, Len: 50, Nullable: true},
				{Name: "sales_channel", Type: TypeText, Len: 50, Nullable: true},
				{Name: "transferred", Type: TypeFlag},
			},
		},
	}
}
