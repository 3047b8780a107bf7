// Package stdlib embeds a static snapshot of Python standard-library
// top-level module names per target Python version, used by the import
// classifier (spec.md §4.1) to distinguish stdlib imports from third-party
// ones. The snapshot is a point-in-time list, not a live interpreter query,
// by design: determinism (spec.md §5) requires the same classification on
// every run regardless of the host's installed Python.
package stdlib

import "strings"

// base is shared across all supported target versions: modules present in
// every Python 3.x release this tool targets. Grounded on the standard
// library module list used by the "standardbeagle-lci" Python resolver
// fixture, extended to the full CPython 3.x top-level module set.
var base = map[string]bool{
	"__future__": true, "_thread": true, "abc": true, "aifc": true,
	"argparse": true, "array": true, "ast": true, "asynchat": true,
	"asyncio": true, "asyncore": true, "atexit": true, "audioop": true,
	"base64": true, "bdb": true, "binascii": true, "binhex": true,
	"bisect": true, "builtins": true, "bz2": true, "calendar": true,
	"cgi": true, "cgitb": true, "chunk": true, "cmath": true, "cmd": true,
	"code": true, "codecs": true, "codeop": true, "collections": true,
	"colorsys": true, "compileall": true, "concurrent": true,
	"configparser": true, "contextlib": true, "contextvars": true,
	"copy": true, "copyreg": true, "cProfile": true, "crypt": true,
	"csv": true, "ctypes": true, "curses": true, "dataclasses": true,
	"datetime": true, "dbm": true, "decimal": true, "difflib": true,
	"dis": true, "distutils": true, "doctest": true, "email": true,
	"encodings": true, "ensurepip": true, "enum": true, "errno": true,
	"faulthandler": true, "fcntl": true, "filecmp": true, "fileinput": true,
	"fnmatch": true, "fractions": true, "ftplib": true, "functools": true,
	"gc": true, "getopt": true, "getpass": true, "gettext": true,
	"glob": true, "graphlib": true, "grp": true, "gzip": true,
	"hashlib": true, "heapq": true, "hmac": true, "html": true,
	"http": true, "idlelib": true, "imaplib": true, "imghdr": true,
	"imp": true, "importlib": true, "inspect": true, "io": true,
	"ipaddress": true, "itertools": true, "json": true, "keyword": true,
	"lib2to3": true, "linecache": true, "locale": true, "logging": true,
	"lzma": true, "mailbox": true, "mailcap": true, "marshal": true,
	"math": true, "mimetypes": true, "mmap": true, "modulefinder": true,
	"msilib": true, "msvcrt": true, "multiprocessing": true, "netrc": true,
	"nis": true, "nntplib": true, "numbers": true, "operator": true,
	"optparse": true, "os": true, "ossaudiodev": true, "pathlib": true,
	"pdb": true, "pickle": true, "pickletools": true, "pipes": true,
	"pkgutil": true, "platform": true, "plistlib": true, "poplib": true,
	"posix": true, "pprint": true, "profile": true, "pstats": true,
	"pty": true, "pwd": true, "py_compile": true, "pyclbr": true,
	"pydoc": true, "queue": true, "quopri": true, "random": true,
	"re": true, "readline": true, "reprlib": true, "resource": true,
	"rlcompleter": true, "runpy": true, "sched": true, "secrets": true,
	"select": true, "selectors": true, "shelve": true, "shlex": true,
	"shutil": true, "signal": true, "site": true, "smtpd": true,
	"smtplib": true, "sndhdr": true, "socket": true, "socketserver": true,
	"spwd": true, "sqlite3": true, "ssl": true, "stat": true,
	"statistics": true, "string": true, "stringprep": true, "struct": true,
	"subprocess": true, "sunau": true, "symtable": true, "sys": true,
	"sysconfig": true, "syslog": true, "tabnanny": true, "tarfile": true,
	"telnetlib": true, "tempfile": true, "termios": true, "test": true,
	"textwrap": true, "threading": true, "time": true, "timeit": true,
	"tkinter": true, "token": true, "tokenize": true, "trace": true,
	"traceback": true, "tracemalloc": true, "tty": true, "turtle": true,
	"turtledemo": true, "types": true, "typing": true, "unicodedata": true,
	"unittest": true, "urllib": true, "uu": true, "uuid": true,
	"venv": true, "warnings": true, "wave": true, "weakref": true,
	"webbrowser": true, "winreg": true, "winsound": true, "wsgiref": true,
	"xdrlib": true, "xml": true, "xmlrpc": true, "zipapp": true,
	"zipfile": true, "zipimport": true, "zlib": true,
}

// addedByVersion records modules introduced after the 3.x baseline, keyed
// by the version they first appeared in.
var addedByVersion = map[string][]string{
	"3.9":  {"graphlib"},
	"3.10": {},
	"3.11": {"tomllib"},
	"3.12": {},
	"3.13": {},
}

// removedByVersion records modules removed by a given version (PEP 594
// dead-battery removals land in 3.13).
var removedByVersion = map[string][]string{
	"3.13": {"aifc", "audioop", "cgi", "cgitb", "chunk", "crypt", "imghdr",
		"mailcap", "msilib", "nis", "nntplib", "ossaudiodev", "pipes",
		"sndhdr", "spwd", "sunau", "telnetlib", "uu", "xdrlib"},
}

// orderedVersions lists supported snapshot versions oldest-first.
var orderedVersions = []string{"3.9", "3.10", "3.11", "3.12", "3.13"}

// Snapshot is an immutable set of top-level stdlib module names for one
// target Python version.
type Snapshot struct {
	version string
	modules map[string]bool
}

// Version returns the Python version this snapshot targets.
func (s *Snapshot) Version() string { return s.version }

// IsStdlib reports whether the top-level component of a dotted module
// specifier names a standard-library module in this snapshot.
func (s *Snapshot) IsStdlib(specifier string) bool {
	top := specifier
	if i := strings.IndexByte(specifier, '.'); i >= 0 {
		top = specifier[:i]
	}
	return s.modules[top]
}

// For builds the stdlib snapshot for a target Python version (e.g. "3.12").
// Unknown versions fall back to the newest known snapshot.
func For(version string) *Snapshot {
	modules := make(map[string]bool, len(base))
	for k, v := range base {
		modules[k] = v
	}

	target := version
	found := false
	for _, v := range orderedVersions {
		if v == target {
			found = true
			break
		}
	}
	if !found {
		target = orderedVersions[len(orderedVersions)-1]
	}

	for _, v := range orderedVersions {
		for _, name := range addedByVersion[v] {
			modules[name] = true
		}
		for _, name := range removedByVersion[v] {
			delete(modules, name)
		}
		if v == target {
			break
		}
	}

	return &Snapshot{version: target, modules: modules}
}
