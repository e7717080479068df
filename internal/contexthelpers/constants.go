package contexthelpers

type contextKey string

const UserIDContextKey = contextKey("userID")
const LanguageContextKey = contextKey("language")
const CurrentPathContextKey = contextKey("currentPath")
