package action

// Reserved is the name of every unassigned slot. It never resolves to a code.
const Reserved = "reserved"

// table maps code -> name. Append only; never reorder.
var table = [...]string{
	// 0-7: system
	"sys.create.user",
	"sys.update.user",
	"sys.update.group",
	"sys.update.creation",
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	// 8-23: user
	"user.login",
	"user.authz",
	"user.update",
	"user.update.cn",
	"user.logout",
	"user.collect",
	"user.follow",
	"user.subscribe",
	"user.sponsor",
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	// 24-39: group
	"group.create",
	"group.update",
	"group.update.cn",
	"group.transfer",
	"group.delete",
	"group.create.user",
	"group.update.user",
	"group.add.member",
	"group.update.member",
	"group.remove.member",
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	// 40-55: creation
	"creation.create",
	"creation.create.converting",
	"creation.create.scraping",
	"creation.update",
	"creation.update.content",
	"creation.release",
	"creation.delete",
	"creation.assist",
	"creation.transfer",
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	// 56-71: publication
	"publication.create",
	"publication.update",
	"publication.update.content",
	"publication.publish",
	"publication.delete",
	"publication.assist",
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
	Reserved,
}

// Len returns the number of slots, assigned or not.
func Len() int {
	return len(table)
}

// Name returns the action name for code. Out-of-range codes, negative codes
// and unassigned slots all return Reserved.
func Name(code int) string {
	if code < 0 || code >= len(table) {
		return Reserved
	}
	return table[code]
}

// Code returns the first code whose name matches. It reports false for
// Reserved and for names not in the table.
func Code(name string) (int8, bool) {
	if name == Reserved {
		return 0, false
	}
	for i, n := range table {
		if n == name {
			return int8(i), true
		}
	}
	return 0, false
}

// Names returns every assigned action name in code order.
func Names() []string {
	names := make([]string, 0, len(table))
	for _, n := range table {
		if n != Reserved {
			names = append(names, n)
		}
	}
	return names
}
