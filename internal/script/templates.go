package script

import "fmt"

// The template bodies target the application's JavaScript automation
// bridge. Two envelope generations are emitted deliberately: the folder and
// tag templates predate the versioned envelope and report {success, data,
// error}, while the task and project templates emit {ok, v, data}. The
// execution adapter normalizes both.

const jxaPrelude = `(() => {
  const app = Application('OmniFocus');
  app.includeStandardAdditions = false;
  const doc = app.defaultDocument();
`

const jxaLegacyClose = `
})()`

// emitLegacy wraps a body in the pre-versioning envelope.
func emitLegacy(body string) string {
	return jxaPrelude + `
  try {
    const data = (() => {` + body + `})();
    return JSON.stringify({success: true, data: data});
  } catch (e) {
    return JSON.stringify({success: false, error: String(e && e.message || e)});
  }` + jxaLegacyClose
}

// emitV3 wraps a body in the versioned envelope. Failures surface inside
// data with error=true while the outer ok stays true; the execution adapter
// is responsible for detecting that case.
func emitV3(body string) string {
	return jxaPrelude + `
  try {
    const data = (() => {` + body + `})();
    return JSON.stringify({ok: true, v: '3', data: data});
  } catch (e) {
    return JSON.stringify({ok: true, v: '3', data: {error: true, message: String(e && e.message || e)}});
  }` + jxaLegacyClose
}

var templates = map[string]Template{
	"folder.list": {Name: "folder.list", Body: emitLegacy(`
      const walk = (f, depth, path) => {
        const name = f.name();
        const here = path ? path + '/' + name : name;
        const out = [{
          id: f.id(), name: name,
          status: f.effectiveActive && f.effectiveActive() === false ? 'dropped' : 'active',
          depth: depth, path: here,
          folders: f.folders().map(c => c.name()),
          projects: ${includeProjects} ? f.projects().map(p => p.name()) : []
        }];
        f.folders().forEach(c => out.push(...walk(c, depth + 1, here)));
        return out;
      };
      const all = [];
      doc.folders().forEach(f => all.push(...walk(f, 0, '')));
      return all;`)},

	"folder.create": {Name: "folder.create", Body: emitLegacy(`
      const parentName = ${parent};
      const props = {name: ${name}};
      const target = parentName ? doc.folders.byName(parentName).folders : doc.folders;
      const f = app.Folder(props);
      target.push(f);
      return {folder: {id: f.id(), name: f.name(), status: 'active'}};`)},

	"folder.update": {Name: "folder.update", Body: emitLegacy(`
      const f = doc.flattenedFolders.byId(${id});
      if (!f) throw new Error('folder not found');
      const updates = ${updates};
      if (updates.name !== undefined) f.name = updates.name;
      return {folder: {id: f.id(), name: f.name()}};`)},

	"folder.delete": {Name: "folder.delete", Body: emitLegacy(`
      const f = doc.flattenedFolders.byId(${id});
      if (!f) throw new Error('folder not found');
      const name = f.name();
      app.delete(f);
      return {deletedFolder: {id: ${id}, name: name}};`)},

	"folder.move": {Name: "folder.move", Body: emitLegacy(`
      const f = doc.flattenedFolders.byId(${id});
      if (!f) throw new Error('folder not found');
      const parentName = ${parent};
      const dest = parentName ? doc.flattenedFolders.byName(parentName).folders : doc.folders;
      app.move(f, {to: dest});
      return {folder: {id: f.id(), name: f.name(), parent: parentName}};`)},

	"folder.set_status": {Name: "folder.set_status", Body: emitLegacy(`
      const f = doc.flattenedFolders.byId(${id});
      if (!f) throw new Error('folder not found');
      f.active = ${active};
      return {folder: {id: f.id(), name: f.name(), status: ${status}}};`)},

	"project.create": {Name: "project.create", Body: emitV3(`
      const spec = ${spec};
      const props = {name: spec.name};
      if (spec.sequential !== undefined) props.sequential = spec.sequential;
      if (spec.flagged !== undefined) props.flagged = spec.flagged;
      if (spec.dueDate) props.dueDate = new Date(spec.dueDate);
      if (spec.deferDate) props.deferDate = new Date(spec.deferDate);
      const p = app.Project(props);
      const target = spec.folder ? doc.flattenedFolders.byName(spec.folder).projects : doc.projects;
      target.push(p);
      return {project: {id: p.id(), name: p.name(), status: 'active', folder: spec.folder || ''}};`)},

	"project.update": {Name: "project.update", Body: emitV3(`
      const p = doc.flattenedProjects.byId(${id});
      if (!p) throw new Error('project not found');
      const updates = ${updates};
      if (updates.name !== undefined) p.name = updates.name;
      if (updates.flagged !== undefined) p.flagged = updates.flagged;
      if (updates.sequential !== undefined) p.sequential = updates.sequential;
      if (updates.note !== undefined) p.note = updates.note;
      if (updates.dueDate !== undefined) p.dueDate = updates.dueDate ? new Date(updates.dueDate) : null;
      if (updates.deferDate !== undefined) p.deferDate = updates.deferDate ? new Date(updates.deferDate) : null;
      return {project: {id: p.id(), name: p.name()}};`)},

	"project.delete": {Name: "project.delete", Body: emitV3(`
      const p = doc.flattenedProjects.byId(${id});
      if (!p) throw new Error('project not found');
      const name = p.name();
      app.delete(p);
      return {deletedProject: {id: ${id}, name: name}};`)},

	"project.move": {Name: "project.move", Body: emitV3(`
      const p = doc.flattenedProjects.byId(${id});
      if (!p) throw new Error('project not found');
      const folderName = ${folder};
      const dest = folderName ? doc.flattenedFolders.byName(folderName).projects : doc.projects;
      app.move(p, {to: dest});
      return {project: {id: p.id(), name: p.name(), folder: folderName}};`)},

	"project.set_status": {Name: "project.set_status", Body: emitV3(`
      const p = doc.flattenedProjects.byId(${id});
      if (!p) throw new Error('project not found');
      p.status = ${status};
      return {project: {id: p.id(), name: p.name(), status: ${status}}};`)},

	"project.mark_reviewed": {Name: "project.mark_reviewed", Body: emitV3(`
      const p = doc.flattenedProjects.byId(${id});
      if (!p) throw new Error('project not found');
      p.lastReviewDate = new Date();
      return {project: {id: p.id(), name: p.name(),
        lastReviewDate: p.lastReviewDate().toISOString(),
        nextReviewDate: p.nextReviewDate() ? p.nextReviewDate().toISOString() : null}};`)},

	"project.set_review_interval": {Name: "project.set_review_interval", Body: emitV3(`
      const p = doc.flattenedProjects.byId(${id});
      if (!p) throw new Error('project not found');
      p.reviewInterval = {unit: 'day', steps: ${days}, fixed: true};
      return {project: {id: p.id(), name: p.name(), reviewIntervalDays: ${days}}};`)},

	"task.get": {Name: "task.get", Body: emitV3(`
      const t = doc.flattenedTasks.byId(${id});
      if (!t) throw new Error('task not found');
      return {task: {
        id: t.id(), name: t.name(), completed: t.completed(), flagged: t.flagged(),
        projectId: t.containingProject() ? t.containingProject().id() : null,
        tags: t.tags().map(g => g.name()),
        dueDate: t.dueDate() ? t.dueDate().toISOString() : null,
        deferDate: t.deferDate() ? t.deferDate().toISOString() : null,
        completionDate: t.completionDate() ? t.completionDate().toISOString() : null,
        blocked: t.blocked(), nextAction: t.next()
      }};`)},

	"task.create": {Name: "task.create", Body: emitV3(`
      const spec = ${spec};
      const props = {name: spec.name};
      if (spec.note) props.note = spec.note;
      if (spec.flagged !== undefined) props.flagged = spec.flagged;
      if (spec.dueDate) props.dueDate = new Date(spec.dueDate);
      if (spec.deferDate) props.deferDate = new Date(spec.deferDate);
      if (spec.estimatedMinutes) props.estimatedMinutes = spec.estimatedMinutes;
      const t = app.Task(props);
      if (spec.projectId) {
        const p = doc.flattenedProjects.byId(spec.projectId);
        if (!p) throw new Error('project not found');
        p.tasks.push(t);
      } else {
        doc.inboxTasks.push(t);
      }
      if (spec.recurrence && spec.recurrence.method !== 'none') {
        const freq = {minutes: 'MINUTELY', hours: 'HOURLY', days: 'DAILY',
          weeks: 'WEEKLY', months: 'MONTHLY', years: 'YEARLY'}[spec.recurrence.unit];
        const method = {'fixed': 'fixed repetition',
          'start-after-completion': 'start after completion',
          'due-after-completion': 'due after completion'}[spec.recurrence.method];
        t.repetitionRule = app.RepetitionRule({
          recurrence: 'FREQ=' + freq + ';INTERVAL=' + spec.recurrence.steps,
          repetitionMethod: method});
      }
      (spec.tags || []).forEach(name => {
        let g = doc.flattenedTags.byName(name);
        if (!g) { g = app.Tag({name: name}); doc.tags.push(g); }
        app.add(g, {to: t.tags});
      });
      return {task: {id: t.id(), name: t.name(), projectId: spec.projectId || null, tags: spec.tags || []}};`)},

	"task.create_child": {Name: "task.create_child", Body: emitV3(`
      const parent = doc.flattenedTasks.byId(${parentId});
      if (!parent) throw new Error('parent task not found');
      const spec = ${spec};
      const props = {name: spec.name};
      if (spec.note) props.note = spec.note;
      if (spec.flagged !== undefined) props.flagged = spec.flagged;
      if (spec.dueDate) props.dueDate = new Date(spec.dueDate);
      if (spec.deferDate) props.deferDate = new Date(spec.deferDate);
      const t = app.Task(props);
      parent.tasks.push(t);
      (spec.tags || []).forEach(name => {
        let g = doc.flattenedTags.byName(name);
        if (!g) { g = app.Tag({name: name}); doc.tags.push(g); }
        app.add(g, {to: t.tags});
      });
      return {task: {id: t.id(), name: t.name(), parentId: ${parentId}, tags: spec.tags || []}};`)},

	"task.update": {Name: "task.update", Body: emitV3(`
      const t = doc.flattenedTasks.byId(${id});
      if (!t) throw new Error('task not found');
      const updates = ${updates};
      if (updates.name !== undefined) t.name = updates.name;
      if (updates.note !== undefined) t.note = updates.note;
      if (updates.flagged !== undefined) t.flagged = updates.flagged;
      if (updates.dueDate !== undefined) t.dueDate = updates.dueDate ? new Date(updates.dueDate) : null;
      if (updates.deferDate !== undefined) t.deferDate = updates.deferDate ? new Date(updates.deferDate) : null;
      if (updates.estimatedMinutes !== undefined) t.estimatedMinutes = updates.estimatedMinutes;
      if (updates.tags !== undefined) {
        t.tags().forEach(g => app.remove(g, {from: t.tags}));
        updates.tags.forEach(name => {
          let g = doc.flattenedTags.byName(name);
          if (!g) { g = app.Tag({name: name}); doc.tags.push(g); }
          app.add(g, {to: t.tags});
        });
      }
      return {task: {id: t.id(), name: t.name()}};`)},

	"task.complete": {Name: "task.complete", Body: emitV3(`
      const t = doc.flattenedTasks.byId(${id});
      if (!t) throw new Error('task not found');
      t.markComplete();
      return {task: {id: t.id(), name: t.name(), completed: true,
        completionDate: t.completionDate() ? t.completionDate().toISOString() : null}};`)},

	"task.delete": {Name: "task.delete", Body: emitV3(`
      const t = doc.flattenedTasks.byId(${id});
      if (!t) throw new Error('task not found');
      const name = t.name();
      app.delete(t);
      return {deletedTask: {id: ${id}, name: name}};`)},

	"task.move": {Name: "task.move", Body: emitV3(`
      const t = doc.flattenedTasks.byId(${id});
      if (!t) throw new Error('task not found');
      const p = doc.flattenedProjects.byId(${projectId});
      if (!p) throw new Error('destination project not found');
      app.move(t, {to: p.tasks});
      return {task: {id: t.id(), name: t.name(), projectId: ${projectId}}};`)},

	"tag.list": {Name: "tag.list", Body: emitLegacy(`
      return doc.flattenedTags().map(g => ({
        name: g.name(),
        taskCount: g.tasks().length,
        availableCount: g.availableTaskCount ? g.availableTaskCount() : 0,
        parent: g.container() && g.container().name ? g.container().name() : '',
        children: g.tags().map(c => c.name())
      }));`)},

	"tag.create": {Name: "tag.create", Body: emitLegacy(`
      const parentName = ${parent};
      const g = app.Tag({name: ${name}});
      const target = parentName ? doc.flattenedTags.byName(parentName).tags : doc.tags;
      target.push(g);
      return {tag: {name: g.name(), parent: parentName || ''}};`)},

	"tag.rename": {Name: "tag.rename", Body: emitLegacy(`
      const g = doc.flattenedTags.byName(${name});
      if (!g) throw new Error('tag not found');
      g.name = ${newName};
      return {tag: {name: g.name()}};`)},

	"tag.delete": {Name: "tag.delete", Body: emitLegacy(`
      const g = doc.flattenedTags.byName(${name});
      if (!g) throw new Error('tag not found');
      app.delete(g);
      return {deletedTag: {name: ${name}}};`)},

	"tag.nest": {Name: "tag.nest", Body: emitLegacy(`
      const g = doc.flattenedTags.byName(${name});
      if (!g) throw new Error('tag not found');
      const parent = doc.flattenedTags.byName(${parent});
      if (!parent) throw new Error('parent tag not found');
      app.move(g, {to: parent.tags});
      return {tag: {name: g.name(), parent: parent.name()}};`)},

	"perspective.list": {Name: "perspective.list", Body: emitV3(`
      const builtIn = ['Inbox', 'Projects', 'Tags', 'Forecast', 'Flagged', 'Review']
        .map(n => ({name: n, builtIn: true}));
      const custom = app.perspectives ? app.perspectives().filter(p => p.name).map(p => ({
        name: p.name(), builtIn: false,
        filterRules: p.archivedFilterRules ? p.archivedFilterRules() : null
      })) : [];
      return builtIn.concat(custom);`)},

	"perspective.query": {Name: "perspective.query", Body: emitV3(`
      const win = app.defaultDocument.documentWindows[0];
      win.perspectiveName = ${name};
      const tree = win.content;
      const rows = [];
      const visit = node => {
        const v = node.value && node.value();
        if (v && v.id) rows.push({id: v.id(), name: v.name(),
          completed: v.completed ? v.completed() : false,
          flagged: v.flagged ? v.flagged() : false,
          dueDate: v.dueDate && v.dueDate() ? v.dueDate().toISOString() : null});
        (node.children ? node.children() : []).forEach(visit);
      };
      (tree.children ? tree.children() : []).forEach(visit);
      return rows;`)},
}

// Lookup returns the named template.
func Lookup(name string) (Template, error) {
	t, ok := templates[name]
	if !ok {
		return Template{}, fmt.Errorf("no script template named '%s'", name)
	}
	return t, nil
}

// Build looks up a template and fills it in one step.
func Build(name string, values map[string]string) (string, error) {
	t, err := Lookup(name)
	if err != nil {
		return "", err
	}
	return t.Fill(values)
}
