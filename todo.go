/*
	Project: TDM, the back office of a music school.
	Staff manage classrooms, instruments, students and teachers and schedule lessons;
	teachers follow their own lessons and keep notes on them.
*/
package tdm

/*
TODO: CSRF tokens on every HTML form
TODO: expand recurrent lessons into weekly occurrences

FE: the pages under fs/templates/pages are plain HTML forms;
	every action also answers JSON (Accept: application/json) for a richer client.
*/
