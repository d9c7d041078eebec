package document

import (
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"
)

type kindLookup interface {
	kindOf(path Path) (Kind, bool)
}

// ApplyPatch replays RFC 6902 add, remove and replace operations inside tx,
// with every operation path taken relative to base. An add below an array
// inserts; anywhere else it puts.
func ApplyPatch(tx Tx, base Path, patch jsondiff.Patch) error {
	for _, op := range patch {
		rel, err := ParsePointer(string(op.Path))
		if err != nil {
			return eris.Wrapf(err, "operation %s", op.Type)
		}
		path := make(Path, 0, len(base)+len(rel))
		path = append(append(path, base...), rel...)

		switch op.Type {
		case jsondiff.OperationAdd:
			if len(path) > 0 && isArray(tx, path.Parent()) {
				err = tx.Insert(path, op.Value)
			} else {
				err = tx.Put(path, op.Value)
			}
		case jsondiff.OperationRemove:
			err = tx.Delete(path)
		case jsondiff.OperationReplace:
			err = tx.Put(path, op.Value)
		default:
			err = eris.Wrapf(ErrUnsupportedOperation, "%s", op.Type)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func isArray(tx Tx, path Path) bool {
	if k, ok := tx.(kindLookup); ok {
		kind, found := k.kindOf(path)
		return found && kind == KindArray
	}
	v, ok := tx.Get(path)
	if !ok {
		return false
	}
	_, isArr := v.([]any)
	return isArr
}
