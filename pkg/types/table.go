package types

type table string

func (t table) Name() string {
	return "otterly_" + string(t)
}

const (
	TABLE_USER          = table("user")
	TABLE_ASPIRATION    = table("aspiration")
	TABLE_JOURNAL       = table("journal")
	TABLE_JOURNAL_ENTRY = table("journal_entry")
)
