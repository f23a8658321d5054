package storage

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/zjregee/aip/internal/models"
)

const (
	runKeyPrefix  = "run:"
	taskKeyPrefix = "task:"
	logKeyPrefix  = "log:"
	pinKeyPrefix  = "pin:"
)

func runKey(id int64) string {
	return fmt.Sprintf("%s%016d", runKeyPrefix, id)
}

func taskPrefix(runID int64) string {
	return fmt.Sprintf("%s%016d:", taskKeyPrefix, runID)
}

func taskKey(runID, id int64) string {
	return fmt.Sprintf("%s%016d", taskPrefix(runID), id)
}

func logPrefix(runID int64) string {
	return fmt.Sprintf("%s%016d:", logKeyPrefix, runID)
}

func pinPrefix(runID int64) string {
	return fmt.Sprintf("%s%016d:", pinKeyPrefix, runID)
}

func (s *Store) CreateRun(run *models.Run) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		id, err := nextID(tx, "run")
		if err != nil {
			return err
		}
		run.ID = id
		return putJSON(tx, runKey(id), run)
	})
}

// UpdateRun applies fn to the stored run within one write transaction.
func (s *Store) UpdateRun(id int64, fn func(*models.Run)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var run models.Run
		if err := getJSON(tx, runKey(id), &run); err != nil {
			return err
		}
		fn(&run)
		return putJSON(tx, runKey(id), &run)
	})
}

func (s *Store) GetRun(id int64) (*models.Run, error) {
	var run models.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx, runKey(id), &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns every run, oldest first.
func (s *Store) ListRuns() ([]*models.Run, error) {
	return listJSON[models.Run](s.db, runKeyPrefix)
}

// DeleteRun removes a run with its tasks, logs and pins.
func (s *Store) DeleteRun(id int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx)
		if err != nil {
			return err
		}
		if b.Get([]byte(runKey(id))) == nil {
			return fmt.Errorf("%w: run %d", ErrNotFound, id)
		}
		for _, prefix := range []string{taskPrefix(id), logPrefix(id), pinPrefix(id)} {
			if err := deletePrefix(tx, []byte(prefix)); err != nil {
				return err
			}
		}
		return b.Delete([]byte(runKey(id)))
	})
}

func (s *Store) CreateTask(task *models.Task) error {
	if task == nil {
		return fmt.Errorf("task is required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		id, err := nextID(tx, "task")
		if err != nil {
			return err
		}
		task.ID = id
		return putJSON(tx, taskKey(task.RunID, id), task)
	})
}

func (s *Store) UpdateTask(runID, id int64, fn func(*models.Task)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var task models.Task
		if err := getJSON(tx, taskKey(runID, id), &task); err != nil {
			return err
		}
		fn(&task)
		return putJSON(tx, taskKey(runID, id), &task)
	})
}

func (s *Store) GetTask(runID, id int64) (*models.Task, error) {
	var task models.Task
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx, taskKey(runID, id), &task)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Store) ListTasks(runID int64) ([]*models.Task, error) {
	return listJSON[models.Task](s.db, taskPrefix(runID))
}

func (s *Store) AppendLog(log *models.Log) error {
	if log == nil {
		return fmt.Errorf("log is required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		id, err := nextID(tx, "log")
		if err != nil {
			return err
		}
		log.ID = id
		return putJSON(tx, fmt.Sprintf("%s%016d", logPrefix(log.RunID), id), log)
	})
}

// ListLogs returns the logs of a run in append order. A zero taskID returns
// the logs of every task.
func (s *Store) ListLogs(runID, taskID int64) ([]*models.Log, error) {
	logs, err := listJSON[models.Log](s.db, logPrefix(runID))
	if err != nil || taskID == 0 {
		return logs, err
	}
	filtered := logs[:0]
	for _, l := range logs {
		if l.TaskID == taskID {
			filtered = append(filtered, l)
		}
	}
	return filtered, nil
}

// SavePin stores a pin. A pin with the same iden on the same run and task is
// replaced.
func (s *Store) SavePin(pin *models.Pin) error {
	if pin == nil {
		return fmt.Errorf("pin is required")
	}
	if pin.RunID == 0 {
		return fmt.Errorf("pin requires a run")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		key := fmt.Sprintf("%s%016d:%s", pinPrefix(pin.RunID), pin.TaskID, pin.Iden)
		var existing models.Pin
		switch err := getJSON(tx, key, &existing); {
		case err == nil:
			pin.ID = existing.ID
		default:
			id, err := nextID(tx, "pin")
			if err != nil {
				return err
			}
			pin.ID = id
		}
		return putJSON(tx, key, pin)
	})
}

func (s *Store) ListPins(runID int64) ([]*models.Pin, error) {
	return listJSON[models.Pin](s.db, pinPrefix(runID))
}
