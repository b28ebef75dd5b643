package modules

func init() {
	for _, m := range []*Module{
		{Name: "typing", Symbols: []string{
			"Any", "Callable", "ClassVar", "Dict", "Final", "FrozenSet", "Generic",
			"Iterable", "Iterator", "List", "Literal", "Mapping", "NamedTuple",
			"Optional", "Sequence", "Set", "Tuple", "Type", "TypeVar", "TypedDict",
			"Union", "cast",
		}},
		{Name: "datetime", Bare: true, Symbols: []string{"datetime", "date", "timedelta", "timezone"}},
		{Name: "enum", Symbols: []string{"Enum", "IntEnum", "StrEnum", "Flag", "IntFlag", "auto"}},
		{Name: "decimal", Symbols: []string{"Decimal"}},
		{Name: "uuid", Bare: true, Symbols: []string{"UUID", "uuid4"}},
		{Name: "dataclasses", Symbols: []string{"dataclass", "field", "asdict"}},
		{Name: "collections", Symbols: []string{"Counter", "OrderedDict", "defaultdict", "deque", "namedtuple"}},
		{Name: "functools", Symbols: []string{"lru_cache", "partial", "reduce", "wraps"}},
		{Name: "itertools", Bare: true, Symbols: []string{"chain", "groupby", "islice"}},
		{Name: "pathlib", Symbols: []string{"Path"}},
		{Name: "contextlib", Symbols: []string{"asynccontextmanager", "contextmanager"}},
		{Name: "json", Bare: true},
		{Name: "re", Bare: true},
		{Name: "os", Bare: true},
		{Name: "sys", Bare: true},
		{Name: "math", Bare: true},
		{Name: "random", Bare: true},
		{Name: "asyncio", Bare: true},
		{Name: "logging", Bare: true},
		{Name: "hashlib", Bare: true},
		{Name: "base64", Bare: true},
		{Name: "secrets", Bare: true},
		{Name: "string", Bare: true},
		{Name: "time", Bare: true},
		{Name: "statistics", Bare: true},

		{Name: "pydantic", Package: "pydantic", Symbols: []string{"BaseModel", "Field", "ValidationError"}},
		{Name: "fastapi", Package: "fastapi", Symbols: []string{"FastAPI", "HTTPException", "Depends", "Query"}},
		{Name: "starlette", Package: "starlette"},
		{Name: "prisma", Package: "prisma"},
		{Name: "uvicorn", Package: "uvicorn"},
		{Name: "requests", Package: "requests", Bare: true},
		{Name: "httpx", Package: "httpx", Bare: true},
		{Name: "numpy", Package: "numpy"},
		{Name: "pandas", Package: "pandas"},
		{Name: "bcrypt", Package: "bcrypt", Bare: true},
		{Name: "jwt", Package: "PyJWT", Bare: true},
		{Name: "dateutil", Package: "python-dateutil"},
		{Name: "yaml", Package: "PyYAML"},
		{Name: "bs4", Package: "beautifulsoup4", Symbols: []string{"BeautifulSoup"}},
	} {
		Register(m)
	}
}
