package jinn

import (
	"testing"

	. "github.com/fulldump/biff"
)

func TestUpdate_SetAndUnset(t *testing.T) {
	rec := Record{"_id": "1", "name": "Pepe"}

	out, err := applyUpdate(rec, Update{"$set": map[string]interface{}{"name": "Wendy", "age": float64(22)}})
	AssertNil(err)
	AssertEqual(out["name"], "Wendy")
	AssertEqual(out["age"], float64(22))

	out, err = applyUpdate(out, Update{"$unset": map[string]interface{}{"age": ""}})
	AssertNil(err)
	_, hasAge := out["age"]
	AssertFalse(hasAge)
}

func TestUpdate_PlainFieldReplacement(t *testing.T) {
	rec := Record{"_id": "1", "name": "Pepe"}
	out, err := applyUpdate(rec, Update{"name": "Wendy"})
	AssertNil(err)
	AssertEqual(out["name"], "Wendy")
}

func TestUpdate_Inc(t *testing.T) {
	rec := Record{"_id": "1", "counter": float64(5)}
	out, err := applyUpdate(rec, Update{"$inc": map[string]interface{}{"counter": float64(3)}})
	AssertNil(err)
	AssertEqual(out["counter"], float64(8))

	out, err = applyUpdate(out, Update{"$inc": map[string]interface{}{"counter": float64(-10)}})
	AssertNil(err)
	AssertEqual(out["counter"], float64(-2))
}

func TestUpdate_MinMax(t *testing.T) {
	rec := Record{"_id": "1", "score": float64(10)}

	out, err := applyUpdate(rec, Update{"$min": map[string]interface{}{"score": float64(5)}})
	AssertNil(err)
	AssertEqual(out["score"], float64(5))

	out, err = applyUpdate(out, Update{"$max": map[string]interface{}{"score": float64(100)}})
	AssertNil(err)
	AssertEqual(out["score"], float64(100))

	out, err = applyUpdate(out, Update{"$max": map[string]interface{}{"score": float64(1)}})
	AssertNil(err)
	AssertEqual(out["score"], float64(100))
}

func TestUpdate_PushAddToSetPop(t *testing.T) {
	rec := Record{"_id": "1", "tags": []interface{}{"a"}}

	out, err := applyUpdate(rec, Update{"$push": map[string]interface{}{"tags": "b"}})
	AssertNil(err)
	AssertEqual(len(out["tags"].([]interface{})), 2)

	out, err = applyUpdate(out, Update{"$addToSet": map[string]interface{}{"tags": "b"}})
	AssertNil(err)
	AssertEqual(len(out["tags"].([]interface{})), 2)

	out, err = applyUpdate(out, Update{"$addToSet": map[string]interface{}{"tags": "c"}})
	AssertNil(err)
	AssertEqual(len(out["tags"].([]interface{})), 3)

	out, err = applyUpdate(out, Update{"$pop": map[string]interface{}{"tags": float64(1)}})
	AssertNil(err)
	AssertEqual(len(out["tags"].([]interface{})), 2)
}

func TestUpdate_Pull(t *testing.T) {
	rec := Record{"_id": "1", "scores": []interface{}{float64(1), float64(2), float64(3), float64(4)}}

	out, err := applyUpdate(rec, Update{"$pull": map[string]interface{}{
		"scores": Query{"$gte": float64(3)},
	}})
	AssertNil(err)
	AssertEqual(len(out["scores"].([]interface{})), 2)
	AssertEqual(out["scores"].([]interface{})[0], float64(1))
	AssertEqual(out["scores"].([]interface{})[1], float64(2))
}

func TestUpdate_PushEachWithSort(t *testing.T) {
	rec := Record{"_id": "1", "scores": []interface{}{float64(5)}}

	out, err := applyUpdate(rec, Update{"$push": map[string]interface{}{
		"scores": map[string]interface{}{
			"$each": []interface{}{float64(3), float64(9)},
			"$sort": true,
		},
	}})
	AssertNil(err)
	scores := out["scores"].([]interface{})
	AssertEqual(len(scores), 3)
	AssertEqual(scores[0], float64(3))
	AssertEqual(scores[1], float64(5))
	AssertEqual(scores[2], float64(9))
}
