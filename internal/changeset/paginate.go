package changeset

// Paginate returns the rows of the 1-based page. Out-of-range pages are empty.
func Paginate(rows []Row, page, pageSize int) []Row {
	if page < 1 || pageSize < 1 {
		return []Row{}
	}
	pages := len(rows) / pageSize
	if len(rows)%pageSize != 0 {
		pages++
	}
	if page > pages {
		return []Row{}
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// CommitInfo returns the commit version and timestamp recorded on the first row, if any.
func (d *Diff) CommitInfo() (version, timestamp string) {
	if len(d.Rows) == 0 {
		return "", ""
	}
	first := d.Rows[0].Values
	return first[CommitVersionColumn], first[CommitTimeColumn]
}
