package cmd

const DESCRIPTION = `
cookiestore inspects and maintains a persistent cookie database.
It can import cookies from Chrome, Firefox and Netscape cookies.txt
files, dump what is stored and delete cookies by origin.
`

const (
	DumpDescription = `The dump command loads every stored cookie and prints it.
Values are masked unless --show-values is passed. With --domain
only the cookies of that domain's group (its registrable domain)
are loaded.

Example:
        cookiestore dump --domain example.com

`
	ImportDescription = `The import command reads one or more foreign cookie stores
and writes their cookies into the database, replacing cookies
with the same name, domain and path. Chrome and Firefox SQLite
databases and Netscape cookies.txt files are detected
automatically.

Example:
        cookiestore import ~/.mozilla/firefox/abc.default/cookies.sqlite cookies.txt

`
	DeleteDescription = `The delete command removes every cookie whose host matches
one of the given domains exactly and whose secure flag equals
--secure.

Example:
        cookiestore delete --domain .example.com --domain example.com

`
	StatsDescription = `The stats command prints the database file size, its schema
version and the number of stored cookies per domain group.

Example:
        cookiestore stats

`
)
