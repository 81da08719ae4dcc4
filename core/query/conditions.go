package query

// Condition is an operator object such as {"$like": "%JAVA%"}.
type Condition map[string]interface{}

func Like(pattern string) Condition  { return Condition{"$like": pattern} }
func ILike(pattern string) Condition { return Condition{"$iLike": pattern} }
func Ne(v interface{}) Condition     { return Condition{"$ne": v} }
func Gte(v interface{}) Condition    { return Condition{"$gte": v} }
func Lte(v interface{}) Condition    { return Condition{"$lte": v} }

func Between(low, high interface{}) Condition {
	return Condition{"$between": []interface{}{low, high}}
}

func In(values ...interface{}) Condition {
	return Condition{"$in": values}
}

func Or(conds ...interface{}) Condition {
	return Condition{"$or": conds}
}

// Contains is the "%term%" search used by the search boxes.
func Contains(term string) Condition { return Like("%" + term + "%") }
